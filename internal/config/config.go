// Package config defines service configuration and its layered loading.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the buffered events across all lanes.
	QueueSize int `koanf:"queue_size"`

	// LaneCount sets the number of per-session ordering lanes.
	LaneCount int `koanf:"lane_count"`

	// ReportRetention caps how many closed-session reports are kept.
	ReportRetention int `koanf:"report_retention"`

	// AutoOpenSessions opens a session on its first event.
	AutoOpenSessions bool `koanf:"auto_open_sessions"`

	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         100_000,
		LaneCount:         runtime.NumCPU(),
		ReportRetention:   1000,
		AutoOpenSessions:  true,
		ShutdownTimeoutMS: 30_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.LaneCount < 1:
		return fmt.Errorf("%w: lane_count must be positive, got %d", ErrInvalidConfig, c.LaneCount)
	case c.ReportRetention < 1:
		return fmt.Errorf("%w: report_retention must be positive, got %d", ErrInvalidConfig, c.ReportRetention)
	case c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
