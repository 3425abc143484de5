package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNotRunning is returned when triggering a stopped component
	ErrNotRunning = errors.New("scheduler is not running")
)
