/*
Package pipeline builds streams of tasks connected by channels.

Every stage is a task launched in a task.Scope that writes to its own output
channel and reads from the output of the previous stage. A stage closes its
output when it finishes: plainly when it completed, with the failure as cause
when it failed. Cancelling a stage output (by a terminal operation returning
early, or by Take) stops the stage and, in turn, its upstream stages.

	scope := task.NewScope(ctx, task.WithName("letters"))

	letters := pipeline.FromSlice(scope, []string{"A", "B", "C"})
	lower := pipeline.Map(scope, letters, func(ctx context.Context, s string) (string, error) {
		return strings.ToLower(s), nil
	})
	items, err := pipeline.Collect(ctx, lower) // [a b c]

Producers: Produce, FromSlice, Tick and TickCron.

Intermediate stages: Map, MapCatch, Transform, Filter, Take, Buffer, Conflate,
Throttle, Catch, FlatMapConcat, FlatMapMerge, Zip and Combine.

Terminal operations run on the caller goroutine: Collect, ForEach, Count,
Fold, Reduce, First, Last, Single and CollectLatest.

# Failures

When a transform fails on an item the stage fails with a *errors.StageError
naming the stage and the item. The scope ErrorHandler sees the failure once, on
the failing stage; downstream stages pass it on without reporting it again, so
the terminal operation returns the StageError. MapCatch replaces failed items
with a fallback instead, and Catch turns an upstream failure into a final item:

	results := pipeline.MapCatch(scope, numbers, process, func(n int, err error) string {
		return "Error: " + err.Error()
	})

# Options

Stage outputs default to rendezvous channels with the Block strategy.
WithCapacity and WithStrategy change that; WithWorkers runs several concurrent
consumers of the input; Critical escalates a failure of the stage to the scope;
WithMetrics exports per-stage item, error and fallback counters alongside the
channel metrics.
*/
package pipeline
