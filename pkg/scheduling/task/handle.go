package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/scheduling/dispatcher"
)

// Option configures a single task.
type Option func(*Handle)

// Named sets the task name used in logs and spans.
func Named(name string) Option {
	return func(h *Handle) { h.name = name }
}

// Critical marks the task so that its failures escalate to the scope by default.
func Critical() Option {
	return func(h *Handle) { h.critical = true }
}

// Lazy defers the start of the task until Start or Await is called.
func Lazy() Option {
	return func(h *Handle) { h.lazy = true }
}

// OnDispatcher runs the task on d instead of the scope dispatcher.
func OnDispatcher(d dispatcher.Dispatcher) Option {
	return func(h *Handle) { h.dispatcher = d }
}

// OnCompletion registers fn to run once the task reaches a final state,
// before Await returns. fn receives the task error, nil when it completed.
func OnCompletion(fn func(err error)) Option {
	return func(h *Handle) { h.onCompletion = append(h.onCompletion, fn) }
}

// Handle is a launched task.
type Handle struct {
	id           string
	name         string
	scope        *Scope
	fn           Func
	dispatcher   dispatcher.Dispatcher
	critical     bool
	lazy         bool
	onCompletion []func(error)

	ctx      context.Context
	cancel   context.CancelCauseFunc
	stopLazy func() bool

	mu              sync.Mutex
	state           State
	started         bool
	cancelRequested bool
	err             error
	done            chan struct{}
}

// ID returns the unique task identifier.
func (h *Handle) ID() string { return h.id }

// Name returns the task name.
func (h *Handle) Name() string { return h.name }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsActive reports whether the task has not finished yet.
func (h *Handle) IsActive() bool { return h.State() == Active }

// IsCancelled reports whether the task ended cancelled or failed.
func (h *Handle) IsCancelled() bool { return h.State() == Cancelled }

// IsCompleted reports whether the task returned normally.
func (h *Handle) IsCompleted() bool { return h.State() == Completed }

// Done returns a channel closed once the task has finished and its
// completion hooks have run.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns why the task ended cancelled, nil otherwise.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Start starts a lazy task. It returns false if the task was already
// started or has finished.
func (h *Handle) Start() bool {
	h.mu.Lock()
	if h.started || h.state != Active || h.cancelRequested {
		h.mu.Unlock()
		return false
	}
	h.started = true
	h.scope.track(1)
	h.mu.Unlock()

	if h.stopLazy != nil {
		h.stopLazy()
	}

	if err := h.dispatcher.Dispatch(h.ctx, h.execute); err != nil {
		h.complete(err)
	}
	return true
}

// Cancel requests cancellation of the task.
func (h *Handle) Cancel() {
	h.CancelWithCause(nil)
}

// CancelWithCause requests cancellation with a cause visible to the task
// through its context. A task that has not started yet never runs.
func (h *Handle) CancelWithCause(cause error) {
	h.mu.Lock()
	if h.state != Active {
		h.mu.Unlock()
		return
	}
	h.cancelRequested = true
	started := h.started
	h.mu.Unlock()

	h.cancel(gferrors.Cancelled(cause))
	if !started {
		h.complete(nil)
	}
}

// Await starts a lazy task if needed and waits until the task finishes or
// ctx is done. It returns the task error.
func (h *Handle) Await(ctx context.Context) error {
	if h.lazy {
		h.Start()
	}

	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return suspend.Checkpoint(ctx)
	}
}

func (h *Handle) info(attempt int) Info {
	return Info{
		ID:       h.id,
		Name:     h.name,
		Scope:    h.scope.name,
		Attempt:  attempt,
		Critical: h.critical,
	}
}

// finishUnstarted ends a lazy task whose scope was cancelled before it started.
func (h *Handle) finishUnstarted() {
	h.mu.Lock()
	if h.started || h.state != Active {
		h.mu.Unlock()
		return
	}
	h.cancelRequested = true
	h.mu.Unlock()

	h.complete(nil)
}

// execute is the dispatched body of the task.
func (h *Handle) execute() {
	if h.ctx.Err() != nil {
		// Cancelled before it got to run.
		h.complete(nil)
		return
	}

	s := h.scope
	start := time.Now()

	ctx, span := s.tracer.Start(h.ctx, h.name, trace.WithAttributes(
		attribute.String("task.id", h.id),
		attribute.String("task.scope", s.name),
		attribute.Bool("task.critical", h.critical),
	))

	err := h.runWithRetry(ctx)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if s.registry != nil {
		s.registry.TaskDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	}

	h.complete(err)
}

// runWithRetry runs the task body, consulting the scope handler on failure.
func (h *Handle) runWithRetry(ctx context.Context) error {
	s := h.scope
	attempt := 0
	var final error

	operation := func() (struct{}, error) {
		attempt++
		err := h.runOnce(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if gferrors.IsCancellation(err) || ctx.Err() != nil {
			final = err
			return struct{}{}, backoff.Permanent(err)
		}

		info := h.info(attempt)
		d := s.decide(ctx, info, err)
		if d == Retry {
			if attempt <= s.retry.MaxRetries {
				if s.registry != nil {
					s.registry.TaskRetries.WithLabelValues(s.name).Inc()
				}
				s.log.Debug().
					Err(err).
					Str(logger.FieldTask, h.name).
					Int(logger.FieldAttempt, attempt).
					Msg("retrying task")
				return struct{}{}, err
			}
			d = defaultDecision(info)
		}

		s.apply(d, info, err)
		final = err
		return struct{}{}, backoff.Permanent(err)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.retry.backOff()),
		backoff.WithMaxTries(uint(max(s.retry.MaxRetries, 0)+1)),
		backoff.WithMaxElapsedTime(0),
	)
	switch {
	case final != nil:
		return final
	case err != nil && ctx.Err() != nil:
		// Cancelled while waiting between attempts.
		return suspend.Checkpoint(ctx)
	default:
		return err
	}
}

// runOnce calls the task body, turning a panic into an error.
func (h *Handle) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.scope.log.Error().
				Str(logger.FieldTask, h.name).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("task panicked")
			err = gferrors.NewOperationError("task", h.name, fmt.Errorf("panic: %v", r))
		}
	}()

	return h.fn(ctx)
}

// complete moves the task to its final state, runs the completion hooks and
// releases Await callers. Only the first call has any effect.
func (h *Handle) complete(err error) {
	h.mu.Lock()
	if h.state != Active {
		h.mu.Unlock()
		return
	}

	switch {
	case err != nil:
		h.state = Cancelled
		h.err = err
	case h.cancelRequested || h.ctx.Err() != nil:
		h.state = Cancelled
		h.err = gferrors.Cancelled(context.Cause(h.ctx))
	default:
		h.state = Completed
	}
	state, taskErr, started := h.state, h.err, h.started
	h.mu.Unlock()

	s := h.scope
	if s.registry != nil {
		if state == Completed {
			s.registry.TasksCompleted.WithLabelValues(s.name).Inc()
		} else {
			s.registry.TasksCancelled.WithLabelValues(s.name).Inc()
		}
	}

	for _, fn := range h.onCompletion {
		h.runHook(fn, taskErr)
	}

	h.cancel(nil)
	close(h.done)

	if started {
		s.track(-1)
	}
}

func (h *Handle) runHook(fn func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			h.scope.log.Error().
				Str(logger.FieldTask, h.name).
				Str("panic", fmt.Sprint(r)).
				Msg("completion hook panicked")
		}
	}()
	fn(err)
}
