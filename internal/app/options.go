package service

import "github.com/okian/turnlat/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLaneCount sets the number of dispatcher lanes.
func WithLaneCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.laneCount = n
		}
	}
}

// WithQueueSize sets the total event buffer across all lanes.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithReportRetention caps how many closed-session reports are kept.
func WithReportRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reportRetention = n
		}
	}
}

// WithAutoOpenSessions controls whether an event for an unknown session
// opens it implicitly.
func WithAutoOpenSessions(enabled bool) Option {
	return func(s *Service) {
		s.autoOpen = enabled
	}
}
