// Package metrics provides Prometheus instrumentation for chanflow components.
//
// # Overview
//
// The metrics package instruments:
//   - Channels (sends, receives, drops, buffer usage, backpressure events)
//   - Tasks (launched, completed, cancelled, failed, retried, duration)
//   - Dispatcher pools (workers, active workers, queued tasks)
//   - Pipeline stages (items, errors, fallbacks)
//
// # Quick Start
//
// Components take a metrics.Config and look up their Registry with Resolve:
//
//	registry := prometheus.NewRegistry()
//	cfg := metrics.Config{Enabled: true, Registry: registry}
//
//	ch := channel.NewWithMetrics[string](channel.Config{BufferSize: 10}, "cities", cfg)
//	scope := task.NewScope(ctx, task.WithMetrics(cfg))
//
// Resolve returns the same Registry for every component that shares a
// Prometheus registerer, so collectors are registered exactly once.
//
// # Available Metrics
//
//   - chanflow_channel_sends_total{channel_name}
//   - chanflow_channel_receives_total{channel_name}
//   - chanflow_channel_drops_total{channel_name}
//   - chanflow_channel_buffer_usage{channel_name}
//   - chanflow_backpressure_events_total{strategy,channel_name}
//   - chanflow_task_launched_total{scope_name}
//   - chanflow_task_completed_total{scope_name}
//   - chanflow_task_cancelled_total{scope_name}
//   - chanflow_task_failed_total{scope_name}
//   - chanflow_task_retries_total{scope_name}
//   - chanflow_task_duration_seconds{scope_name}
//   - chanflow_dispatcher_workers{dispatcher_name}
//   - chanflow_dispatcher_active_workers{dispatcher_name}
//   - chanflow_dispatcher_queued_tasks{dispatcher_name}
//   - chanflow_stage_items_total{operation,stage_name}
//   - chanflow_stage_errors_total{operation,stage_name}
//   - chanflow_stage_fallbacks_total{operation,stage_name}
//
// The namespace is taken from Config.Namespace the first time a registerer is
// resolved.
package metrics
