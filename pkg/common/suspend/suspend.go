// Package suspend provides the cooperative suspension points used by tasks:
// places where a task may wait and where it observes cancellation.
package suspend

import (
	"context"
	"runtime"
	"time"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
)

// Checkpoint returns a cancellation error if ctx is done, nil otherwise.
// The returned error matches errors.ErrCancelled and wraps the context cause.
func Checkpoint(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return cancellation(ctx)
	default:
		return nil
	}
}

// Delay suspends for d or until ctx is done, whichever comes first.
// A non-positive d still checks for cancellation.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return Checkpoint(ctx)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return cancellation(ctx)
	}
}

// Yield gives other goroutines a chance to run, then checks for cancellation.
func Yield(ctx context.Context) error {
	runtime.Gosched()
	return Checkpoint(ctx)
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}

func cancellation(ctx context.Context) error {
	cause := context.Cause(ctx)
	if gferrors.IsTimeout(cause) {
		return cause
	}
	return gferrors.Cancelled(cause)
}
