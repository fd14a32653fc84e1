// Package metrics provides Prometheus instrumentation for chanflow components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for chanflow components.
type Registry struct {
	// Channel Metrics
	ChannelSends       *prometheus.CounterVec
	ChannelReceives    *prometheus.CounterVec
	ChannelDrops       *prometheus.CounterVec
	ChannelBufferUsage *prometheus.GaugeVec
	BackpressureEvents *prometheus.CounterVec

	// Task Metrics
	TasksLaunched  *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksCancelled *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TaskRetries    *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec

	// Dispatcher Metrics
	DispatcherWorkers *prometheus.GaugeVec
	DispatcherActive  *prometheus.GaugeVec
	DispatcherQueued  *prometheus.GaugeVec

	// Pipeline Stage Metrics
	StageItems     *prometheus.CounterVec
	StageErrors    *prometheus.CounterVec
	StageFallbacks *prometheus.CounterVec
}

var (
	// DefaultRegistry is the metrics registry bound to prometheus.DefaultRegisterer.
	DefaultRegistry *Registry

	resolvedMu sync.Mutex
	resolved   = map[registryKey]*Registry{}
)

type registryKey struct {
	reg       prometheus.Registerer
	namespace string
}

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	resolved[registryKey{prometheus.DefaultRegisterer, DefaultNamespace}] = DefaultRegistry
}

// Resolve returns the Registry for config, or nil when metrics are disabled.
// Components sharing a Prometheus registerer and namespace share one
// Registry, so the collectors are registered only once.
func Resolve(config Config) *Registry {
	if !config.Enabled {
		return nil
	}

	key := registryKey{reg: config.Registry, namespace: config.Namespace}
	if key.reg == nil {
		key.reg = prometheus.DefaultRegisterer
	}
	if key.namespace == "" {
		key.namespace = DefaultNamespace
	}

	resolvedMu.Lock()
	defer resolvedMu.Unlock()

	if r, ok := resolved[key]; ok {
		return r
	}
	r := newRegistry(key.reg, key.namespace)
	resolved[key] = r
	return r
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace)
}

func newRegistry(reg prometheus.Registerer, namespace string) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}
	gauge := func(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Registry{
		ChannelSends:       counter("channel", "sends_total", "Total number of items sent", "channel_name"),
		ChannelReceives:    counter("channel", "receives_total", "Total number of items received", "channel_name"),
		ChannelDrops:       counter("channel", "drops_total", "Total number of items dropped by backpressure", "channel_name"),
		ChannelBufferUsage: gauge("channel", "buffer_usage", "Current number of buffered items", "channel_name"),
		BackpressureEvents: counter("backpressure", "events_total", "Total number of backpressure events", "strategy", "channel_name"),

		TasksLaunched:  counter("task", "launched_total", "Total number of tasks launched", "scope_name"),
		TasksCompleted: counter("task", "completed_total", "Total number of tasks completed normally", "scope_name"),
		TasksCancelled: counter("task", "cancelled_total", "Total number of tasks that ended cancelled", "scope_name"),
		TasksFailed:    counter("task", "failed_total", "Total number of task failures observed by the scope handler", "scope_name"),
		TaskRetries:    counter("task", "retries_total", "Total number of task re-executions", "scope_name"),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Time spent executing tasks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope_name"}),

		DispatcherWorkers: gauge("dispatcher", "workers", "Number of workers in the dispatcher pool", "dispatcher_name"),
		DispatcherActive:  gauge("dispatcher", "active_workers", "Number of workers currently running a task", "dispatcher_name"),
		DispatcherQueued:  gauge("dispatcher", "queued_tasks", "Number of tasks waiting for a worker", "dispatcher_name"),

		StageItems:     counter("stage", "items_total", "Total number of items emitted by a pipeline stage", "operation", "stage_name"),
		StageErrors:    counter("stage", "errors_total", "Total number of item failures in a pipeline stage", "operation", "stage_name"),
		StageFallbacks: counter("stage", "fallbacks_total", "Total number of failed items replaced by a fallback value", "operation", "stage_name"),
	}
}
