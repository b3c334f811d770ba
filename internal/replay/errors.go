package replay

import "errors"

// ErrRead is returned when the input stream fails mid-replay.
var ErrRead = errors.New("read events")
