package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/common/validation"
	"github.com/vnykmshr/chanflow/pkg/metrics"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name identifies the pool in logs and metrics.
	Name string

	// Workers is the number of worker goroutines. Must be greater than 0.
	Workers int

	// QueueSize is the maximum number of tasks waiting for a worker.
	// Zero means an unbounded queue; Dispatch then never blocks.
	QueueSize int

	// PanicHandler is called when a dispatched function panics.
	// If nil, the panic is logged with its stack trace.
	PanicHandler func(recovered interface{}, stack []byte)

	// Logger receives worker lifecycle and panic events. Defaults to a no-op logger.
	Logger *zerolog.Logger

	// Metrics exports worker, active and queued gauges when enabled.
	Metrics metrics.Config
}

// Pool runs dispatched functions on a fixed set of worker goroutines fed by a queue.
type Pool struct {
	config   Config
	queue    channel.BackpressureChannel[func()]
	log      zerolog.Logger
	registry *metrics.Registry

	workerWg     sync.WaitGroup
	shutdownOnce sync.Once
	done         chan struct{}

	activeWorkers   atomic.Int64
	totalDispatched atomic.Int64
	totalCompleted  atomic.Int64
}

// NewPool creates a worker pool and starts its workers.
func NewPool(config Config) (*Pool, error) {
	if err := validation.ValidateNotEmpty("dispatcher", "Name", config.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("dispatcher", "Workers", config.Workers); err != nil {
		return nil, err
	}
	if err := validation.ValidateAtLeast("dispatcher", "QueueSize", config.QueueSize, 0); err != nil {
		return nil, err
	}

	capacity := config.QueueSize
	if capacity == 0 {
		capacity = channel.Unlimited
	}

	log := logger.Nop()
	if config.Logger != nil {
		log = *config.Logger
	}

	p := &Pool{
		config:   config,
		queue:    channel.New[func()](capacity),
		log:      logger.WithComponent(log, "dispatcher").With().Str("dispatcher", config.Name).Logger(),
		registry: metrics.Resolve(config.Metrics),
		done:     make(chan struct{}),
	}

	p.workerWg.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go p.run(i)
	}
	p.updateMetrics()

	return p, nil
}

// NewSingle creates a pool with exactly one worker, so dispatched functions
// run one at a time in dispatch order.
func NewSingle(name string) *Pool {
	p, err := NewPool(Config{Name: name, Workers: 1})
	if err != nil {
		panic(fmt.Sprintf("dispatcher: %v", err))
	}
	return p
}

// Dispatch queues fn for a worker. It blocks while a bounded queue is full.
// After Shutdown it fails with errors.ErrClosed.
func (p *Pool) Dispatch(ctx context.Context, fn func()) error {
	if fn == nil {
		return fmt.Errorf("dispatcher %s: fn cannot be nil", p.config.Name)
	}

	err := p.queue.Send(ctx, fn)
	switch {
	case err == nil:
		p.totalDispatched.Add(1)
		p.updateMetrics()
		return nil
	case errors.Is(err, channel.ErrChannelClosed):
		return gferrors.NewOperationError("dispatcher", "Dispatch", gferrors.ErrClosed).
			WithContext(p.config.Name + " has been shut down")
	default:
		return err
	}
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.config.Name
}

// Shutdown stops accepting work. Queued functions still run; the returned
// channel closes once every worker has exited.
func (p *Pool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.queue.Close()

		go func() {
			p.workerWg.Wait()
			p.updateMetrics()
			close(p.done)
		}()
	})

	return p.done
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return p.config.Workers
}

// QueueSize returns the current number of queued functions waiting for a worker.
func (p *Pool) QueueSize() int {
	return p.queue.Len()
}

// ActiveWorkers returns the number of workers currently running a function.
func (p *Pool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalDispatched returns the total number of functions accepted by the pool.
func (p *Pool) TotalDispatched() int64 {
	return p.totalDispatched.Load()
}

// TotalCompleted returns the total number of functions that finished running.
func (p *Pool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker.
func (p *Pool) run(id int) {
	defer p.workerWg.Done()

	p.log.Debug().Int("worker", id).Msg("worker started")
	defer p.log.Debug().Int("worker", id).Msg("worker stopped")

	for {
		fn, err := p.queue.Receive(context.Background())
		if err != nil {
			// Closed and drained
			return
		}
		p.execute(fn)
	}
}

// execute runs fn, recovering panics so the worker survives.
func (p *Pool) execute(fn func()) {
	p.activeWorkers.Add(1)
	p.updateMetrics()

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(r, stack)
			} else {
				p.log.Error().
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", stack).
					Msg("dispatched function panicked")
			}
		}

		p.activeWorkers.Add(-1)
		p.totalCompleted.Add(1)
		p.updateMetrics()
	}()

	fn()
}

func (p *Pool) updateMetrics() {
	if p.registry == nil {
		return
	}

	p.registry.DispatcherWorkers.WithLabelValues(p.config.Name).Set(float64(p.config.Workers))
	p.registry.DispatcherActive.WithLabelValues(p.config.Name).Set(float64(p.ActiveWorkers()))
	p.registry.DispatcherQueued.WithLabelValues(p.config.Name).Set(float64(p.QueueSize()))
}
