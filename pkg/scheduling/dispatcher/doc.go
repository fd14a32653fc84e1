/*
Package dispatcher decides where task bodies run.

A Dispatcher receives functions and runs them somewhere: Default starts a
goroutine per function, Unconfined runs the function on the caller's goroutine
before Dispatch returns, and a Pool runs functions on a fixed set of workers.

Worker Pools:

	pool, err := dispatcher.NewPool(dispatcher.Config{
		Name:    "io",
		Workers: 4,
	})
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	pool.Dispatch(ctx, func() {
		fmt.Println("running on a pool worker")
	})

The queue between Dispatch and the workers is a channel.BackpressureChannel.
QueueSize bounds it (Dispatch blocks while it is full); zero leaves it unbounded.
Shutdown stops accepting work, lets the workers drain the queue and closes the
returned channel once they have exited. Dispatch after Shutdown fails with an
error matching errors.ErrClosed.

NewSingle builds a one-worker pool. Functions dispatched to it run one at a
time in dispatch order, which makes it a natural owner of state that must not
be touched concurrently.

A function that blocks occupies its worker until it returns, so functions
waiting on other work dispatched to the same pool can starve it.

Panics in dispatched functions are recovered. PanicHandler receives the value
and stack trace; without one the panic is logged.
*/
package dispatcher
