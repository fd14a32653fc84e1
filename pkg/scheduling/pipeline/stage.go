package pipeline

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/metrics"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// Emitter sends one item downstream. It returns a cancellation error once
// the consumer has stopped receiving or the stage is cancelled; callers
// should return that error.
type Emitter[T any] func(item T) error

// errDownstreamStopped is the cause of the cancellation a stage observes when
// its consumer cancelled the output channel.
var errDownstreamStopped = errors.New("downstream stopped receiving")

// upstreamError carries a failure that ended the input stream of a stage.
type upstreamError struct {
	cause error
}

func (e *upstreamError) Error() string { return e.cause.Error() }

func (e *upstreamError) Unwrap() error { return e.cause }

// endOfInput interprets a Receive error: nil for a normal end of stream, an
// upstreamError when the producer closed with a cause, err otherwise.
func endOfInput(err error) error {
	var closed *channel.ClosedError
	switch {
	case errors.As(err, &closed):
		return &upstreamError{cause: closed.Cause}
	case errors.Is(err, channel.ErrChannelClosed):
		return nil
	default:
		return err
	}
}

// streamErr strips the upstream marker for consumers.
func streamErr(err error) error {
	var up *upstreamError
	if errors.As(err, &up) {
		return up.cause
	}
	return err
}

type canceler interface {
	Cancel()
}

// stage is one producer or transform: a task writing to an output channel.
type stage[Out any] struct {
	op    string
	opts  options
	scope *task.Scope
	out   channel.BackpressureChannel[Out]
	log   zerolog.Logger

	items     prometheus.Counter
	errors    prometheus.Counter
	fallbacks prometheus.Counter
}

func newStage[Out any](s *task.Scope, op string, opts []Option) *stage[Out] {
	o := newOptions(op, opts)
	config := channel.Config{BufferSize: o.capacity, Strategy: o.strategy}

	st := &stage[Out]{
		op:    op,
		opts:  o,
		scope: s,
		log:   s.Logger().With().Str(logger.FieldStage, o.name).Logger(),
	}

	registry := s.Registry()
	if o.metrics.Enabled {
		registry = metrics.Resolve(o.metrics)
		st.out = channel.NewWithMetrics[Out](config, o.name, o.metrics)
	} else {
		st.out = channel.NewWithConfig[Out](config)
	}

	if registry != nil {
		st.items = registry.StageItems.WithLabelValues(op, o.name)
		st.errors = registry.StageErrors.WithLabelValues(op, o.name)
		st.fallbacks = registry.StageFallbacks.WithLabelValues(op, o.name)
	}
	return st
}

// emit sends v downstream.
func (st *stage[Out]) emit(ctx context.Context, v Out) error {
	if err := st.out.Send(ctx, v); err != nil {
		if errors.Is(err, channel.ErrChannelClosed) {
			return gferrors.Cancelled(errDownstreamStopped)
		}
		return err
	}
	inc(st.items)
	return nil
}

func (st *stage[Out]) emitter(ctx context.Context) Emitter[Out] {
	return func(v Out) error { return st.emit(ctx, v) }
}

// launch runs body as a task of the scope. When the task finishes, the output
// is closed (with the failure as cause, if any) and the inputs are cancelled.
func (st *stage[Out]) launch(inputs []canceler, body func(ctx context.Context) error) channel.ReceiveChannel[Out] {
	var propagated error

	fn := func(ctx context.Context) error {
		err := body(ctx)
		var up *upstreamError
		if errors.As(err, &up) {
			// Not a failure of this stage: pass it on without consulting the handler.
			propagated = up.cause
			return gferrors.Cancelled(up.cause)
		}
		return err
	}

	hook := func(err error) {
		switch {
		case propagated != nil:
			st.out.CloseWithError(propagated)
		case err != nil:
			st.out.CloseWithError(err)
		default:
			st.out.Close()
		}
		for _, in := range inputs {
			in.Cancel()
		}
		if err != nil && propagated == nil && !gferrors.IsCancellation(err) {
			st.log.Debug().Err(err).Msg("stage closed with failure")
		}
	}

	taskOpts := []task.Option{task.Named(st.opts.name), task.OnCompletion(hook)}
	if st.opts.critical {
		taskOpts = append(taskOpts, task.Critical())
	}
	for _, fn := range st.opts.onCompletion {
		taskOpts = append(taskOpts, task.OnCompletion(fn))
	}

	st.scope.Launch(fn, taskOpts...)
	return st.out
}

// runWorkers runs loop on the configured number of goroutines. The first
// error cancels the others and is returned.
func (st *stage[Out]) runWorkers(ctx context.Context, loop func(ctx context.Context) error) error {
	if st.opts.workers == 1 {
		return loop(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < st.opts.workers; i++ {
		g.Go(func() error { return loop(gctx) })
	}
	return g.Wait()
}

// forEachInput receives from in until the end of the stream and calls fn for
// every item.
func forEachInput[T any](ctx context.Context, in channel.ReceiveChannel[T], fn func(T) error) error {
	for {
		v, err := in.Receive(ctx)
		if err != nil {
			return endOfInput(err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
