package task

import "fmt"

// State is the lifecycle state of a task.
type State int32

const (
	// Active tasks are waiting to start or running.
	Active State = iota

	// Cancelled tasks stopped before completing normally, either on request
	// or because their function failed. Err reports why.
	Cancelled

	// Completed tasks returned normally.
	Completed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decision is what an ErrorHandler wants done with a task failure.
type Decision int

const (
	// Default applies the scope's default policy: Log for isolated tasks,
	// Escalate for critical ones.
	Default Decision = iota

	// Ignore drops the failure silently.
	Ignore

	// Log records the failure; only the failing task is affected.
	Log

	// Retry runs the task again after a backoff delay.
	Retry

	// Escalate cancels the whole scope with the failure as cause.
	Escalate
)

func (d Decision) String() string {
	switch d {
	case Default:
		return "default"
	case Ignore:
		return "ignore"
	case Log:
		return "log"
	case Retry:
		return "retry"
	case Escalate:
		return "escalate"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}
