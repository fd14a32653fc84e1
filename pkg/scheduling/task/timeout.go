package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/scheduling/dispatcher"
)

// WithTimeout runs fn with a deadline d. Once the deadline passes, fn's
// context is cancelled and the result is an error matching errors.ErrTimeout,
// whatever fn returns. fn runs on the calling goroutine.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	timeoutErr := fmt.Errorf("%w after %v", gferrors.ErrTimeout, d)

	tctx, cancel := context.WithTimeoutCause(ctx, d, timeoutErr)
	defer cancel()

	v, err := fn(tctx)
	if errors.Is(context.Cause(tctx), timeoutErr) {
		var zero T
		return zero, timeoutErr
	}
	return v, err
}

// On runs fn on dispatcher d and waits for its result. ctx is passed to fn;
// On returns only after fn has returned.
func On[T any](ctx context.Context, d dispatcher.Dispatcher, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		v    T
		err  error
		done = make(chan struct{})
	)

	dispatchErr := d.Dispatch(ctx, func() {
		defer close(done)
		if err = suspend.Checkpoint(ctx); err != nil {
			return
		}
		v, err = fn(ctx)
	})
	if dispatchErr != nil {
		var zero T
		return zero, dispatchErr
	}

	<-done
	return v, err
}
