package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when registering a job after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned when triggering a job on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrDuplicateJob is returned when two jobs share a name
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobNotFound is returned when a job is not registered
	ErrJobNotFound = errors.New("job not found")

	// ErrJobInProgress is returned when a job is triggered while its previous run is still going
	ErrJobInProgress = errors.New("job already in progress")

	// ErrInvalidTrigger is returned for a trigger that never fires
	ErrInvalidTrigger = errors.New("invalid job trigger")
)
