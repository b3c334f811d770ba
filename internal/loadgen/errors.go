package loadgen

import "errors"

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid loadgen config")
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrUnexpectedStatus is returned for HTTP responses outside the expected codes.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMismatch is returned when a stored report disagrees with the plan.
	ErrMismatch = errors.New("report mismatch")
)
