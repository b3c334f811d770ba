// Package worker routes metric events onto per-session lanes.
package worker

import (
	"github.com/okian/turnlat/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithLanes sets the number of lanes. Each lane is drained by one goroutine.
func WithLanes(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.laneCount = n
		}
	}
}

// WithQueueSize sets the total buffered capacity, split evenly across lanes.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
