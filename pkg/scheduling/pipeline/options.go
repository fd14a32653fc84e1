package pipeline

import (
	"time"

	"github.com/vnykmshr/chanflow/pkg/metrics"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

type options struct {
	name         string
	capacity     int
	strategy     channel.BackpressureStrategy
	interval     time.Duration
	workers      int
	critical     bool
	onCompletion []func(error)
	metrics      metrics.Config
}

// Option configures a pipeline stage.
type Option func(*options)

// Named names the stage in logs, spans and metrics.
func Named(name string) Option {
	return func(o *options) { o.name = name }
}

// WithCapacity sets the capacity of the stage output channel
// (channel.Rendezvous by default).
func WithCapacity(capacity int) Option {
	return func(o *options) { o.capacity = capacity }
}

// WithStrategy sets the backpressure strategy of the stage output channel.
func WithStrategy(strategy channel.BackpressureStrategy) Option {
	return func(o *options) { o.strategy = strategy }
}

// WithInterval makes producers wait d before emitting each item.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithWorkers runs n competing consumers of the stage input. Items are then
// emitted in completion order rather than input order.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Critical escalates a failure of the stage to its scope.
func Critical() Option {
	return func(o *options) { o.critical = true }
}

// OnCompletion registers fn to run once the stage has finished and closed its
// output. fn receives the stage error, nil when it completed normally.
func OnCompletion(fn func(err error)) Option {
	return func(o *options) { o.onCompletion = append(o.onCompletion, fn) }
}

// WithMetrics exports the stage items, errors and fallbacks together with the
// output channel metrics. Without it the stage uses the scope registry.
func WithMetrics(config metrics.Config) Option {
	return func(o *options) { o.metrics = config }
}

func newOptions(op string, opts []Option) options {
	o := options{
		name:     op,
		capacity: channel.Rendezvous,
		strategy: channel.Block,
		workers:  1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}
