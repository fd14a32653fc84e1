package task

import (
	"context"
	"slices"
)

// Deferred is a task that produces a value.
type Deferred[T any] struct {
	*Handle
	value T
}

// Async launches fn as a task of s and returns a Deferred for its result.
func Async[T any](s *Scope, fn func(ctx context.Context) (T, error), opts ...Option) *Deferred[T] {
	d := &Deferred[T]{}
	d.Handle = s.Launch(func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		d.value = v
		return nil
	}, append(slices.Clip(opts), Lazy())...)

	if !hasLazy(opts) {
		d.Start()
	}
	return d
}

// Await waits for the value. A cancelled or failed task yields its error.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	if err := d.Handle.Await(ctx); err != nil {
		var zero T
		return zero, err
	}
	return d.value, nil
}

func hasLazy(opts []Option) bool {
	h := &Handle{}
	for _, opt := range opts {
		opt(h)
	}
	return h.lazy
}
