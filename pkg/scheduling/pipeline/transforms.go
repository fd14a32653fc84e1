package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// Map applies fn to every item. A failing item fails the stage with a
// StageError: the output closes with it as cause and the input is cancelled.
func Map[In, Out any](s *task.Scope, in channel.ReceiveChannel[In], fn func(ctx context.Context, item In) (Out, error), opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "map", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return st.runWorkers(ctx, func(ctx context.Context) error {
			return forEachInput(ctx, in, func(item In) error {
				v, err := fn(ctx, item)
				if err != nil {
					return st.itemFailure(ctx, item, err)
				}
				return st.emit(ctx, v)
			})
		})
	})
}

// MapCatch applies fn to every item and replaces each failure with
// fallback(item, err). It emits exactly one item per input item and never
// fails because of fn.
func MapCatch[In, Out any](s *task.Scope, in channel.ReceiveChannel[In], fn func(ctx context.Context, item In) (Out, error), fallback func(item In, err error) Out, opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "map_catch", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return st.runWorkers(ctx, func(ctx context.Context) error {
			return forEachInput(ctx, in, func(item In) error {
				v, err := callCatching(ctx, fn, item)
				if err != nil {
					if gferrors.IsCancellation(err) && ctx.Err() != nil {
						return err
					}
					inc(st.errors)
					inc(st.fallbacks)
					st.log.Debug().Err(err).Interface("item", item).Msg("item failed, emitting fallback")
					v = fallback(item, err)
				}
				return st.emit(ctx, v)
			})
		})
	})
}

// callCatching calls fn, turning a panic into an error.
func callCatching[In, Out any](ctx context.Context, fn func(ctx context.Context, item In) (Out, error), item In) (v Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

// Transform calls fn for every item; fn may emit any number of items.
func Transform[In, Out any](s *task.Scope, in channel.ReceiveChannel[In], fn func(ctx context.Context, item In, emit Emitter[Out]) error, opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "transform", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return st.runWorkers(ctx, func(ctx context.Context) error {
			emit := st.emitter(ctx)
			return forEachInput(ctx, in, func(item In) error {
				if err := fn(ctx, item, emit); err != nil {
					if gferrors.IsCancellation(err) {
						return err
					}
					return st.itemFailure(ctx, item, err)
				}
				return nil
			})
		})
	})
}

// Filter passes on the items for which keep returns true.
func Filter[T any](s *task.Scope, in channel.ReceiveChannel[T], keep func(item T) bool, opts ...Option) channel.ReceiveChannel[T] {
	st := newStage[T](s, "filter", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return st.runWorkers(ctx, func(ctx context.Context) error {
			return forEachInput(ctx, in, func(item T) error {
				if !keep(item) {
					return nil
				}
				return st.emit(ctx, item)
			})
		})
	})
}

// Take passes on the first n items, then cancels its input.
func Take[T any](s *task.Scope, in channel.ReceiveChannel[T], n int, opts ...Option) channel.ReceiveChannel[T] {
	st := newStage[T](s, "take", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		for taken := 0; taken < n; taken++ {
			v, err := in.Receive(ctx)
			if err != nil {
				return endOfInput(err)
			}
			if err := st.emit(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Buffer decouples a producer from a slower consumer with a buffer of the
// given capacity.
func Buffer[T any](s *task.Scope, in channel.ReceiveChannel[T], capacity int, opts ...Option) channel.ReceiveChannel[T] {
	opts = append([]Option{WithCapacity(capacity)}, opts...)
	return relay(s, "buffer", in, opts)
}

// Conflate keeps only the most recent item while the consumer is busy.
func Conflate[T any](s *task.Scope, in channel.ReceiveChannel[T], opts ...Option) channel.ReceiveChannel[T] {
	opts = append(opts, WithCapacity(1), WithStrategy(channel.DropOldest))
	return relay(s, "conflate", in, opts)
}

// Throttle passes items on at most at rate r with bursts of up to burst items.
func Throttle[T any](s *task.Scope, in channel.ReceiveChannel[T], r rate.Limit, burst int, opts ...Option) channel.ReceiveChannel[T] {
	limiter := rate.NewLimiter(r, max(burst, 1))

	st := newStage[T](s, "throttle", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return forEachInput(ctx, in, func(item T) error {
			if err := limiter.Wait(ctx); err != nil {
				if cerr := suspend.Checkpoint(ctx); cerr != nil {
					return cerr
				}
				return err
			}
			return st.emit(ctx, item)
		})
	})
}

// Catch passes items on unchanged. If the input ends with a failure, fallback
// is called with it; when it returns true its item is emitted as the last one
// and the stream ends normally. Cancellations are never caught.
func Catch[T any](s *task.Scope, in channel.ReceiveChannel[T], fallback func(err error) (T, bool), opts ...Option) channel.ReceiveChannel[T] {
	st := newStage[T](s, "catch", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		err := forEachInput(ctx, in, func(item T) error {
			return st.emit(ctx, item)
		})

		cause := streamErr(err)
		if err == nil || cause == err || gferrors.IsCancellation(cause) {
			return err
		}

		v, ok := fallback(cause)
		if !ok {
			return err
		}
		st.log.Debug().Err(cause).Msg("upstream failure caught")
		return st.emit(ctx, v)
	})
}

func relay[T any](s *task.Scope, op string, in channel.ReceiveChannel[T], opts []Option) channel.ReceiveChannel[T] {
	st := newStage[T](s, op, opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return forEachInput(ctx, in, func(item T) error {
			return st.emit(ctx, item)
		})
	})
}

// itemFailure turns an fn error into the stage failure. Cancellations pass
// through unchanged.
func (st *stage[Out]) itemFailure(ctx context.Context, item any, err error) error {
	if gferrors.IsCancellation(err) && ctx.Err() != nil {
		return err
	}
	inc(st.errors)
	return gferrors.NewStageError(st.opts.name, item, err)
}
