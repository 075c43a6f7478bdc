package scheduler

import "errors"

var (
	// ErrNotInitialized is returned by Start before Init.
	ErrNotInitialized = errors.New("scheduler not initialized")
	// ErrNotStarted is returned by Stop without a matching Start, and passed
	// to tasks scheduled outside a run.
	ErrNotStarted = errors.New("scheduler not started")
	// ErrAlreadyStarted is returned when a second run is started before the
	// first one stopped.
	ErrAlreadyStarted = errors.New("scheduler already started")
	// ErrTaskPanicked wraps a panic recovered from a task.
	ErrTaskPanicked = errors.New("task panicked")
)
