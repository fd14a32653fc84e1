/*
Package chanflow provides structured concurrency primitives for Go: scoped
tasks with explicit states, channels with configurable capacity and
backpressure, and cold pipelines composed of stages.

Scheduling (pkg/scheduling):
  - task: scopes, launch/async/run, cancellation, error handlers, timeouts
  - dispatcher: goroutine, unconfined and worker pool dispatchers
  - pipeline: producers, intermediate operators and terminal operations

Streaming (pkg/streaming):
  - channel: rendezvous, buffered and unlimited channels
  - console: ordered asynchronous line output

Example usage:

	import (
		"github.com/vnykmshr/chanflow/pkg/scheduling/pipeline"
		"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	)

	scope := task.NewScope(ctx)
	letters := pipeline.FromSlice(scope, []string{"A", "B", "C"})
	items, err := pipeline.Collect(ctx, letters) // [A B C]

Every blocking operation takes a context.Context and every long-running
component can be shut down or cancelled. The programs under examples/ walk
through the primitives and share the configuration in examples/config.yml.
*/
package chanflow
