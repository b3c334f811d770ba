package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already open")
	ErrClosed   = errors.New("session closed")
)
