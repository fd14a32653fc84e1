package task

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/metrics"
	"github.com/vnykmshr/chanflow/pkg/scheduling/dispatcher"
)

const tracerName = "github.com/vnykmshr/chanflow/pkg/scheduling/task"

// Func is the body of a task. It should return promptly once ctx is done.
type Func func(ctx context.Context) error

// Scope owns a group of tasks. Cancelling a scope cancels every task in it,
// and Wait returns once all of them have finished.
type Scope struct {
	name       string
	ctx        context.Context
	cancel     context.CancelCauseFunc
	parent     *Scope
	supervisor bool

	dispatcher dispatcher.Dispatcher
	handler    ErrorHandler
	retry      RetryPolicy
	log        zerolog.Logger
	registry   *metrics.Registry
	tracer     trace.Tracer

	// idle is closed whenever no task of the scope or its children runs.
	idleMu  sync.Mutex
	running int
	idle    chan struct{}

	mu      sync.Mutex
	failure error
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithName names the scope in logs, spans and metrics.
func WithName(name string) ScopeOption {
	return func(s *Scope) { s.name = name }
}

// WithDispatcher sets where tasks of the scope run by default.
func WithDispatcher(d dispatcher.Dispatcher) ScopeOption {
	return func(s *Scope) { s.dispatcher = d }
}

// WithHandler installs the handler consulted on every task failure.
func WithHandler(h ErrorHandler) ScopeOption {
	return func(s *Scope) { s.handler = h }
}

// WithRetryPolicy bounds Retry decisions.
func WithRetryPolicy(p RetryPolicy) ScopeOption {
	return func(s *Scope) { s.retry = p }
}

// WithLogger sets the logger used to report failures and escalations.
func WithLogger(l zerolog.Logger) ScopeOption {
	return func(s *Scope) { s.log = l }
}

// WithMetrics exports task counters and durations.
func WithMetrics(config metrics.Config) ScopeOption {
	return func(s *Scope) { s.registry = metrics.Resolve(config) }
}

// WithTracerProvider sets the provider of the per-task spans.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) ScopeOption {
	return func(s *Scope) { s.tracer = tp.Tracer(tracerName) }
}

// Supervisor keeps escalations inside the scope: a child scope created with
// it is cancelled by its own critical failures without cancelling its parent.
func Supervisor() ScopeOption {
	return func(s *Scope) { s.supervisor = true }
}

// NewScope creates a scope whose lifetime is bounded by parent.
func NewScope(parent context.Context, opts ...ScopeOption) *Scope {
	s := &Scope{
		name:       "scope",
		dispatcher: dispatcher.Default(),
		retry:      DefaultRetryPolicy(),
		log:        logger.Nop(),
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.init(parent)
	return s
}

func (s *Scope) init(parent context.Context) {
	s.ctx, s.cancel = context.WithCancelCause(parent)
	s.idle = make(chan struct{})
	close(s.idle)
	s.log = logger.WithComponent(s.log, "task").With().Str(logger.FieldScope, s.name).Logger()
}

// Child creates a nested scope. It inherits the parent's configuration, is
// cancelled with it, and the parent's Wait also waits for the child's tasks.
// Unless created with Supervisor, escalations in the child cancel the parent too.
func (s *Scope) Child(opts ...ScopeOption) *Scope {
	child := &Scope{
		name:       s.name + "/child",
		parent:     s,
		dispatcher: s.dispatcher,
		handler:    s.handler,
		retry:      s.retry,
		log:        s.log,
		registry:   s.registry,
		tracer:     s.tracer,
	}
	for _, opt := range opts {
		opt(child)
	}
	child.init(s.ctx)
	return child
}

// Launch starts fn as a new task and returns immediately.
func (s *Scope) Launch(fn Func, opts ...Option) *Handle {
	h := s.newHandle(fn, opts)
	if s.registry != nil {
		s.registry.TasksLaunched.WithLabelValues(s.name).Inc()
	}
	if !h.lazy {
		h.Start()
	}
	return h
}

// Run executes fn as a task of the scope on the calling goroutine and
// returns its error once it has finished.
func (s *Scope) Run(fn Func, opts ...Option) error {
	h := s.Launch(fn, append(slices.Clip(opts), OnDispatcher(dispatcher.Unconfined()))...)
	<-h.Done()
	return h.Err()
}

// Cancel cancels the scope and all of its tasks. The cause is visible
// through the cancellation errors the tasks observe.
func (s *Scope) Cancel(cause error) {
	s.cancel(gferrors.Cancelled(cause))
}

// Wait blocks until every task started in the scope (and its children) has
// finished, then returns the failure that escalated to the scope, if any.
func (s *Scope) Wait(ctx context.Context) error {
	s.idleMu.Lock()
	idle := s.idle
	s.idleMu.Unlock()

	select {
	case <-idle:
		return s.Err()
	case <-ctx.Done():
		return suspend.Checkpoint(ctx)
	}
}

// Err returns the first failure escalated to the scope.
func (s *Scope) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// IsActive returns true until the scope is cancelled.
func (s *Scope) IsActive() bool {
	return s.ctx.Err() == nil
}

// Context returns the scope context. It is done once the scope is cancelled.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Logger returns the scope logger.
func (s *Scope) Logger() zerolog.Logger {
	return s.log
}

// Registry returns the scope metrics registry, nil when metrics are disabled.
func (s *Scope) Registry() *metrics.Registry {
	return s.registry
}

func (s *Scope) newHandle(fn Func, opts []Option) *Handle {
	id := uuid.NewString()
	h := &Handle{
		id:         id,
		name:       "task-" + id[:8],
		scope:      s,
		fn:         fn,
		dispatcher: s.dispatcher,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx, cancel := context.WithCancelCause(s.ctx)
	h.ctx = withInfo(ctx, h.info(0))
	h.cancel = cancel

	if h.lazy {
		h.stopLazy = context.AfterFunc(h.ctx, h.finishUnstarted)
	}
	return h
}

// track adds delta running tasks to the scope and its ancestors.
func (s *Scope) track(delta int) {
	for sc := s; sc != nil; sc = sc.parent {
		sc.idleMu.Lock()
		if sc.running == 0 && delta > 0 {
			sc.idle = make(chan struct{})
		}
		sc.running += delta
		if sc.running == 0 {
			close(sc.idle)
		}
		sc.idleMu.Unlock()
	}
}

// decide consults the handler and resolves Default to the scope policy.
func (s *Scope) decide(ctx context.Context, info Info, err error) (d Decision) {
	if s.registry != nil {
		s.registry.TasksFailed.WithLabelValues(s.name).Inc()
	}

	if s.handler != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Str("panic", fmt.Sprint(r)).Msg("error handler panicked")
					d = Default
				}
			}()
			d = s.handler(ctx, info, err)
		}()
	}

	if d == Default {
		d = defaultDecision(info)
	}
	return d
}

func defaultDecision(info Info) Decision {
	if info.Critical {
		return Escalate
	}
	return Log
}

// apply carries out a final decision.
func (s *Scope) apply(d Decision, info Info, err error) {
	switch d {
	case Ignore:
	case Escalate:
		s.log.Warn().
			Err(err).
			Str(logger.FieldTask, info.Name).
			Str(logger.FieldTaskID, info.ID).
			Str(logger.FieldDecision, d.String()).
			Msg("task failure escalated, cancelling scope")
		s.escalate(err)
	default:
		s.log.Error().
			Err(err).
			Str(logger.FieldTask, info.Name).
			Str(logger.FieldTaskID, info.ID).
			Int(logger.FieldAttempt, info.Attempt).
			Str(logger.FieldDecision, d.String()).
			Msg("task failed")
	}
}

// escalate records err as the scope failure and cancels the scope.
func (s *Scope) escalate(err error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = err
	}
	s.mu.Unlock()

	s.cancel(err)

	if s.parent != nil && !s.supervisor {
		s.parent.escalate(err)
	}
}
