package channel

import (
	"context"
	"iter"

	"github.com/vnykmshr/chanflow/pkg/metrics"
)

// metricsChannel wraps a BackpressureChannel with Prometheus metrics collection.
type metricsChannel[T any] struct {
	BackpressureChannel[T]
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a channel whose sends, receives, drops and buffer
// usage are recorded under the given channel name. With metrics disabled it
// returns a plain channel.
func NewWithMetrics[T any](config Config, name string, metricsConfig metrics.Config) BackpressureChannel[T] {
	registry := metrics.Resolve(metricsConfig)
	if registry == nil {
		return NewWithConfig[T](config)
	}

	strategy := config.Strategy.String()

	onDrop := config.OnDrop
	config.OnDrop = func(value interface{}) {
		registry.ChannelDrops.WithLabelValues(name).Inc()
		registry.BackpressureEvents.WithLabelValues(strategy, name).Inc()
		if onDrop != nil {
			onDrop(value)
		}
	}

	onBlock := config.OnBlock
	config.OnBlock = func() {
		registry.BackpressureEvents.WithLabelValues(strategy, name).Inc()
		if onBlock != nil {
			onBlock()
		}
	}

	return &metricsChannel[T]{
		BackpressureChannel: NewWithConfig[T](config),
		name:                name,
		registry:            registry,
	}
}

// Send sends a value and records it on success.
func (mc *metricsChannel[T]) Send(ctx context.Context, value T) error {
	err := mc.BackpressureChannel.Send(ctx, value)
	mc.recordSend(err)
	return err
}

// TrySend attempts a non-blocking send and records it on success.
func (mc *metricsChannel[T]) TrySend(value T) error {
	err := mc.BackpressureChannel.TrySend(value)
	if err == ErrChannelFull {
		mc.registry.BackpressureEvents.WithLabelValues(Error.String(), mc.name).Inc()
	}
	mc.recordSend(err)
	return err
}

// Receive receives a value and records it on success.
func (mc *metricsChannel[T]) Receive(ctx context.Context) (T, error) {
	value, err := mc.BackpressureChannel.Receive(ctx)
	if err == nil {
		mc.registry.ChannelReceives.WithLabelValues(mc.name).Inc()
	}
	mc.updateUsage()
	return value, err
}

// TryReceive attempts a non-blocking receive and records it on success.
func (mc *metricsChannel[T]) TryReceive() (T, bool, error) {
	value, ok, err := mc.BackpressureChannel.TryReceive()
	if ok {
		mc.registry.ChannelReceives.WithLabelValues(mc.name).Inc()
	}
	mc.updateUsage()
	return value, ok, err
}

// All iterates through the instrumented Receive.
func (mc *metricsChannel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			value, err := mc.Receive(ctx)
			if err != nil || !yield(value) {
				return
			}
		}
	}
}

// Cancel discards queued values and resets the usage gauge.
func (mc *metricsChannel[T]) Cancel() {
	mc.BackpressureChannel.Cancel()
	mc.updateUsage()
}

func (mc *metricsChannel[T]) recordSend(err error) {
	if err == nil {
		mc.registry.ChannelSends.WithLabelValues(mc.name).Inc()
	}
	mc.updateUsage()
}

func (mc *metricsChannel[T]) updateUsage() {
	mc.registry.ChannelBufferUsage.WithLabelValues(mc.name).Set(float64(mc.Len()))
}
