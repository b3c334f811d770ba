package worker

import "errors"

// ErrStopped is returned when submitting to a dispatcher that was shut down.
var ErrStopped = errors.New("dispatcher stopped")
