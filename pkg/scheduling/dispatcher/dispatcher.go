package dispatcher

import (
	"context"
)

// Dispatcher decides where a task body runs.
type Dispatcher interface {
	// Dispatch schedules fn. It may block while the dispatcher has no room
	// and returns an error if fn can no longer be scheduled. ctx bounds only
	// the scheduling, never the execution of fn.
	Dispatch(ctx context.Context, fn func()) error

	// Name identifies the dispatcher in logs and metrics.
	Name() string
}

type goroutineDispatcher struct{}

// Default returns the dispatcher that starts one goroutine per task.
func Default() Dispatcher {
	return goroutineDispatcher{}
}

func (goroutineDispatcher) Dispatch(_ context.Context, fn func()) error {
	go fn()
	return nil
}

func (goroutineDispatcher) Name() string { return "default" }

type unconfinedDispatcher struct{}

// Unconfined returns the dispatcher that runs fn on the calling goroutine
// before Dispatch returns.
func Unconfined() Dispatcher {
	return unconfinedDispatcher{}
}

func (unconfinedDispatcher) Dispatch(_ context.Context, fn func()) error {
	fn()
	return nil
}

func (unconfinedDispatcher) Name() string { return "unconfined" }
