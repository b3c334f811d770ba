package ingest

import "errors"

// Sentinel kinds for malformed events.
var (
	ErrMalformed      = errors.New("malformed metric event")
	ErrMissingSession = errors.New("missing session_id")
)
