/*
Package channel provides context-aware FIFO channels for communication between tasks.

A channel is the only structure tasks share. Producers hold the SendChannel half,
consumers hold the ReceiveChannel half, and BackpressureChannel combines both with
statistics. All state is guarded by one mutex and two condition variables; blocked
operations wake up as soon as their context is done.

Capacity:

	ch := New[string](Rendezvous) // hand-off: Send returns once a receiver took the value
	ch := New[string](10)         // bounded: Send blocks while 10 values are queued
	ch := New[string](Unlimited)  // unbounded: Send never blocks

A capacity below Unlimited panics.

Closing:

Close marks the end of the stream. Values queued before Close stay receivable;
Receive then returns an error matching ErrChannelClosed. Sends after Close always
fail with ErrChannelClosed. CloseWithError records why the producer stopped:

	ch.CloseWithError(err)

	_, err := ch.Receive(ctx)
	errors.Is(err, ErrChannelClosed) // true
	errors.Is(err, cause)            // true

Cancel is the consumer's way out: it closes the channel and discards queued values,
so blocked producers fail instead of waiting forever.

Iteration:

	for value := range ch.All(ctx) {
		fmt.Println(value)
	}

The loop ends when the channel is closed and drained or ctx is done. Breaking out
of the loop leaves the channel open.

Backpressure Strategies:

Block (default) blocks the producer until space is available. Drop discards the new
value, DropOldest discards the oldest queued value (conflation) and Error returns
ErrChannelFull. A Rendezvous channel behaves as a one-slot buffer under the
non-blocking strategies.

	config := Config{
		BufferSize: 10,
		Strategy:   DropOldest,
		OnDrop: func(value interface{}) {
			log.Printf("Dropped oldest: %v", value)
		},
	}
	ch := NewWithConfig[int](config)

Cancellation and Timeouts:

A blocked Send or Receive returns an error matching errors.ErrCancelled and the
context cause when its context is cancelled, or context.DeadlineExceeded when its
deadline passes. SendTimeout and ReceiveTimeout in Config apply a per-operation
deadline.

Performance Monitoring:

	stats := ch.Stats()
	fmt.Printf("Send count: %d\n", stats.SendCount)
	fmt.Printf("Dropped count: %d\n", stats.DroppedCount)
	fmt.Printf("Buffer utilization: %.1f%%\n", stats.BufferUtilization*100)

NewWithMetrics additionally exports sends, receives, drops and buffer usage to
Prometheus under a channel name.
*/
package channel
