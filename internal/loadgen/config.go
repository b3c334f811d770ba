package loadgen

import (
	"fmt"
	"runtime"
	"time"
)

// Defaults for Config.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultSessions = 50
	DefaultTurns    = 20
	DefaultTimeout  = 10 * time.Second
	workersPerCPU   = 2
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Sessions int           // Number of synthetic sessions
	Turns    int           // Turns generated per session
	Workers  int           // Sessions driven concurrently
	Timeout  time.Duration // HTTP request timeout
	Shuffle  bool          // Randomize the kind order inside each turn
	NullRate float64       // Probability that an event carries a null value
	Seed     uint64        // Seed for latency and ordering draws
	Verbose  bool          // Log each session as it is verified
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Sessions: DefaultSessions,
		Turns:    DefaultTurns,
		Workers:  runtime.NumCPU() * workersPerCPU,
		Timeout:  DefaultTimeout,
		Seed:     uint64(time.Now().UnixNano()),
	}
}

// Validate checks the fields that would make a run meaningless.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Sessions <= 0:
		return fmt.Errorf("%w: sessions must be positive", ErrInvalidConfig)
	case c.Turns <= 0:
		return fmt.Errorf("%w: turns must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.NullRate < 0 || c.NullRate >= 1:
		return fmt.Errorf("%w: null rate must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	SessionsPlanned  int
	SessionsVerified int
	SessionsFailed   int
	EventsSubmitted  int
	EventsRejected   int
	Retries          int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
