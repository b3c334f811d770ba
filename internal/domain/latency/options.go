package latency

import (
	"github.com/okian/turnlat/internal/domain/model"
	"github.com/okian/turnlat/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for per-metric and per-turn lines.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithOnTurn registers a callback invoked after each completed turn. It runs
// on the recording goroutine, outside the tracker lock.
func WithOnTurn(fn func(model.CompletedTurn)) Option {
	return func(t *Tracker) {
		t.onTurn = fn
	}
}
