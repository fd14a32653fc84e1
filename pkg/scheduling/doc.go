/*
Package scheduling groups the primitives that decide when and where work runs.

  - task: structured concurrency. A Scope owns tasks launched with Launch,
    Run or Async; cancelling the scope cancels them all, and an ErrorHandler
    decides per failure whether to log, retry or escalate it.
  - dispatcher: where a task body runs. Default starts a goroutine per task,
    Unconfined runs it on the caller, and Pool runs it on a bounded set of
    workers.
  - pipeline: cold streams built from stages. Each stage is a task of a
    scope writing to its own channel, so cancelling the scope stops the
    whole pipeline.

Basic usage:

	scope := task.NewScope(ctx, task.WithName("orders"))

	totals := pipeline.Map(scope, pipeline.FromSlice(scope, orders),
		func(ctx context.Context, o Order) (float64, error) {
			return price(ctx, o)
		})

	sum, err := pipeline.Fold(ctx, totals, 0.0, func(acc, v float64) float64 {
		return acc + v
	})

All components are safe for concurrent use and honour context cancellation.
*/
package scheduling
