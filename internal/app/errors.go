package service

import "errors"

// Sentinel kinds returned by Service operations.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidEvent = errors.New("invalid event")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	// ErrSessionClosed is returned for ids whose report is still retained.
	ErrSessionClosed = errors.New("session already closed")
	ErrBackpressure  = errors.New("backpressure")
	ErrStopped       = errors.New("service stopping")

	errDiscarded = errors.New("event discarded")
)
