/*
Package task provides scoped, cancellable units of work.

A Scope owns tasks. Launch starts a task and returns its Handle; Async starts a
task that produces a value; Run executes a task on the calling goroutine. Every
task is in exactly one State: Active until it finishes, then Completed when its
function returned normally or Cancelled when it was cancelled or failed.

	scope := task.NewScope(ctx, task.WithName("countries"))

	job := scope.Launch(func(ctx context.Context) error {
		return suspend.Delay(ctx, time.Second)
	})
	job.Cancel()
	job.Await(ctx) // job.State() == task.Cancelled

	capital := task.Async(scope, func(ctx context.Context) (string, error) {
		return "Lima", nil
	})
	city, err := capital.Await(ctx)

Cancellation is cooperative. Cancelling a task or its scope cancels the task
context; the function observes it at suspension points (channel operations,
suspend.Delay, suspend.Checkpoint, Await). A task cancelled before or during its
execution always ends Cancelled, even if its function returned nil, and a task
launched into a cancelled scope never runs its function.

Failures:

When a task function returns an error (or panics), the scope ErrorHandler
decides what happens:

	Log      record the failure; only the failing task is affected
	Ignore   drop it silently
	Retry    run the task again after an exponential backoff delay
	Escalate cancel the whole scope with the failure as cause
	Default  Log for ordinary tasks, Escalate for tasks launched with Critical()

Retries are bounded by the scope RetryPolicy; once exhausted the default policy
applies. Cancellation errors never reach the handler. Whatever the decision, the
failing task ends Cancelled and Err returns its error.

Child scopes are cancelled with their parent and the parent's Wait also waits
for their tasks. Escalations propagate to the parent unless the child was
created with Supervisor().

Each task execution is traced as an OpenTelemetry span, and WithMetrics exports
launched, completed, cancelled, failed and retried counters plus durations.
*/
package task
