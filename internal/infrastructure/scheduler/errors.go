package scheduler

import "errors"

var (
	// ErrRunnerNotRunning is returned when triggering a job on a stopped runner
	ErrRunnerNotRunning = errors.New("runner is not running")

	// ErrJobNotFound is returned when a named job is not registered
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned when a job is registered with no interval or no run function
	ErrInvalidConfig = errors.New("invalid job configuration")
)
