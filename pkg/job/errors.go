package job

import "errors"

var (
	// ErrUnknownTask is returned when a task name has no registered handler.
	ErrUnknownTask = errors.New("job: unknown task")

	// ErrInvalidPayload is returned when a task payload cannot be
	// unmarshaled into the expected type.
	ErrInvalidPayload = errors.New("job: invalid payload")

	// ErrDuplicateTask is returned by NewManager when two tasks share a name.
	ErrDuplicateTask = errors.New("job: duplicate task name")

	ErrHealthcheckFailed = errors.New("job: healthcheck failed")

	ErrAlreadyStarted = errors.New("job: already started")
	ErrNotStarted     = errors.New("job: not started")

	// ErrPoolRequired is returned by NewManager and Migrate without a pool.
	ErrPoolRequired = errors.New("job: pool is required")

	// ErrNoQueue is returned by FromContext callers that require a queue.
	ErrNoQueue = errors.New("job: no queue in context")
)
