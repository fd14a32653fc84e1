package pipeline

import (
	"context"
	"errors"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

var (
	// ErrStop can be returned by a ForEach callback to stop collecting
	// without failing.
	ErrStop = errors.New("stop collecting")

	// ErrNoElements is returned by First, Single and Reduce on an empty stream.
	ErrNoElements = errors.New("stream has no elements")

	// ErrMultipleElements is returned by Single when the stream has more than
	// one element.
	ErrMultipleElements = errors.New("stream has more than one element")
)

// ForEach calls fn for every item until the stream ends. It returns the
// failure that ended the stream, or the first error of fn. When it returns
// before the end of the stream, the stream is cancelled.
func ForEach[T any](ctx context.Context, in channel.ReceiveChannel[T], fn func(item T) error) error {
	err := forEachInput(ctx, in, fn)
	if err == nil {
		return nil
	}

	in.Cancel()
	if errors.Is(err, ErrStop) {
		return nil
	}
	return streamErr(err)
}

// Collect gathers the items of the stream into a slice, in order.
func Collect[T any](ctx context.Context, in channel.ReceiveChannel[T]) ([]T, error) {
	var items []T
	err := ForEach(ctx, in, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

// Count returns the number of items of the stream.
func Count[T any](ctx context.Context, in channel.ReceiveChannel[T]) (int, error) {
	n := 0
	err := ForEach(ctx, in, func(T) error {
		n++
		return nil
	})
	return n, err
}

// Fold accumulates the items of the stream starting from initial.
func Fold[T, R any](ctx context.Context, in channel.ReceiveChannel[T], initial R, fn func(acc R, item T) R) (R, error) {
	acc := initial
	err := ForEach(ctx, in, func(item T) error {
		acc = fn(acc, item)
		return nil
	})
	return acc, err
}

// Reduce accumulates the items of the stream starting from the first one.
func Reduce[T any](ctx context.Context, in channel.ReceiveChannel[T], fn func(acc, item T) T) (T, error) {
	var acc T
	seen := false
	err := ForEach(ctx, in, func(item T) error {
		if !seen {
			acc, seen = item, true
			return nil
		}
		acc = fn(acc, item)
		return nil
	})
	if err == nil && !seen {
		err = ErrNoElements
	}
	return acc, err
}

// First returns the first item and cancels the rest of the stream.
func First[T any](ctx context.Context, in channel.ReceiveChannel[T]) (T, error) {
	var first T
	seen := false
	err := ForEach(ctx, in, func(item T) error {
		first, seen = item, true
		return ErrStop
	})
	if err == nil && !seen {
		err = ErrNoElements
	}
	return first, err
}

// Last returns the last item of the stream.
func Last[T any](ctx context.Context, in channel.ReceiveChannel[T]) (T, error) {
	var last T
	seen := false
	err := ForEach(ctx, in, func(item T) error {
		last, seen = item, true
		return nil
	})
	if err == nil && !seen {
		err = ErrNoElements
	}
	return last, err
}

// Single returns the only item of the stream.
func Single[T any](ctx context.Context, in channel.ReceiveChannel[T]) (T, error) {
	var single T
	seen := false
	err := ForEach(ctx, in, func(item T) error {
		if seen {
			return ErrMultipleElements
		}
		single, seen = item, true
		return nil
	})
	if err == nil && !seen {
		err = ErrNoElements
	}
	return single, err
}

// CollectLatest calls fn for every item, cancelling the call for the previous
// item if it is still running. It waits for the last call to finish.
func CollectLatest[T any](ctx context.Context, in channel.ReceiveChannel[T], fn func(ctx context.Context, item T) error) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		stop    context.CancelFunc
		done    chan struct{}
		failure error
	)
	stopCurrent := func(wait bool) {
		if done == nil {
			return
		}
		if !wait {
			stop()
		}
		<-done
		stop()
		done = nil
	}

	for {
		item, err := in.Receive(ctx)
		if err != nil {
			end := endOfInput(err)
			stopCurrent(end == nil)
			switch {
			case failure != nil:
				in.Cancel()
				return failure
			case end != nil:
				in.Cancel()
				return streamErr(end)
			default:
				return nil
			}
		}

		stopCurrent(false)
		if failure != nil {
			in.Cancel()
			return failure
		}

		callCtx, callCancel := context.WithCancel(ctx)
		finished := make(chan struct{})
		stop, done = callCancel, finished
		go func() {
			defer close(finished)
			if err := fn(callCtx, item); err != nil {
				if gferrors.IsCancellation(err) && callCtx.Err() != nil {
					return
				}
				failure = err
				cancel(err)
			}
		}()
	}
}
