package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// FlatMapConcat maps every item to a stream and emits the streams one after
// the other, in input order.
func FlatMapConcat[In, Out any](s *task.Scope, in channel.ReceiveChannel[In], fn func(item In) channel.ReceiveChannel[Out], opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "flat_map_concat", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		return forEachInput(ctx, in, func(item In) error {
			inner := fn(item)
			defer inner.Cancel()

			return forEachInput(ctx, inner, func(v Out) error {
				return st.emit(ctx, v)
			})
		})
	})
}

// FlatMapMerge maps every item to a stream and collects up to concurrency
// streams at a time. Items of different streams are interleaved.
func FlatMapMerge[In, Out any](s *task.Scope, in channel.ReceiveChannel[In], concurrency int, fn func(item In) channel.ReceiveChannel[Out], opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "flat_map_merge", opts)
	return st.launch([]canceler{in}, func(ctx context.Context) error {
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(concurrency, 1))

		err := forEachInput(gctx, in, func(item In) error {
			inner := fn(item)
			g.Go(func() error {
				defer inner.Cancel()
				return forEachInput(gctx, inner, func(v Out) error {
					return st.emit(gctx, v)
				})
			})
			return nil
		})
		if err == nil {
			return g.Wait()
		}

		// The inner streams stop with cancellations; a real inner failure wins.
		cancel(err)
		if werr := g.Wait(); werr != nil && !gferrors.IsCancellation(werr) {
			return werr
		}
		return err
	})
}

// Zip pairs the items of a and b by position and ends with the shorter stream.
func Zip[A, B, Out any](s *task.Scope, a channel.ReceiveChannel[A], b channel.ReceiveChannel[B], fn func(a A, b B) Out, opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "zip", opts)
	return st.launch([]canceler{a, b}, func(ctx context.Context) error {
		for {
			va, err := a.Receive(ctx)
			if err != nil {
				return endOfInput(err)
			}
			vb, err := b.Receive(ctx)
			if err != nil {
				return endOfInput(err)
			}
			if err := st.emit(ctx, fn(va, vb)); err != nil {
				return err
			}
		}
	})
}

type latest[A, B any] struct {
	a    A
	b    B
	hasA bool
	hasB bool
}

type update[A, B any] struct {
	a     A
	b     B
	fromA bool
}

// Combine emits fn of the latest items of a and b every time either stream
// produces, once both have produced at least once. It ends when both end.
func Combine[A, B, Out any](s *task.Scope, a channel.ReceiveChannel[A], b channel.ReceiveChannel[B], fn func(a A, b B) Out, opts ...Option) channel.ReceiveChannel[Out] {
	st := newStage[Out](s, "combine", opts)
	return st.launch([]canceler{a, b}, func(ctx context.Context) error {
		ctx, cancel := context.WithCancel(ctx)
		updates := channel.New[update[A, B]](channel.Unlimited)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return forEachInput(gctx, a, func(v A) error {
				return updates.Send(gctx, update[A, B]{a: v, fromA: true})
			})
		})
		g.Go(func() error {
			return forEachInput(gctx, b, func(v B) error {
				return updates.Send(gctx, update[A, B]{b: v})
			})
		})

		var inputErr error
		joined := make(chan struct{})
		go func() {
			defer close(joined)
			inputErr = g.Wait()
			updates.Close()
		}()
		defer func() {
			cancel()
			<-joined
		}()

		var cur latest[A, B]
		for {
			u, err := updates.Receive(ctx)
			if err != nil {
				if errors.Is(err, channel.ErrChannelClosed) {
					<-joined
					return inputErr
				}
				return err
			}

			if u.fromA {
				cur.a, cur.hasA = u.a, true
			} else {
				cur.b, cur.hasB = u.b, true
			}
			if !cur.hasA || !cur.hasB {
				continue
			}
			if err := st.emit(ctx, fn(cur.a, cur.b)); err != nil {
				return err
			}
		}
	})
}
