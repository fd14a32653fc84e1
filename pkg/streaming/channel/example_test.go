package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Example demonstrates basic backpressure channel usage.
func Example() {
	// Create a channel with buffer size 3
	ch := New[int](3)
	defer ch.Close()

	ctx := context.Background()

	// Send some values
	ch.Send(ctx, 1)
	ch.Send(ctx, 2)
	ch.Send(ctx, 3)

	fmt.Printf("Channel length: %d\n", ch.Len())

	// Receive values
	val1, _ := ch.Receive(ctx)
	val2, _ := ch.Receive(ctx)

	fmt.Printf("Received: %d, %d\n", val1, val2)
	fmt.Printf("Remaining length: %d\n", ch.Len())

	// Output:
	// Channel length: 3
	// Received: 1, 2
	// Remaining length: 1
}

// Example_rendezvous demonstrates a hand-off channel: the producer waits for
// each value to be taken before it continues.
func Example_rendezvous() {
	ch := New[string](Rendezvous)
	ctx := context.Background()

	go func() {
		for _, country := range []string{"Argentina", "Chile", "Peru"} {
			ch.Send(ctx, country)
		}
		ch.Close()
	}()

	for country := range ch.All(ctx) {
		fmt.Println(country)
	}
	fmt.Printf("Drained: %v\n", ch.IsDrained())

	// Output:
	// Argentina
	// Chile
	// Peru
	// Drained: true
}

// Example_blockStrategy demonstrates blocking backpressure strategy.
func Example_blockStrategy() {
	config := Config{
		BufferSize: 2,
		Strategy:   Block,
	}
	ch := NewWithConfig[string](config)
	defer ch.Close()

	ctx := context.Background()

	// Fill the buffer
	ch.Send(ctx, "first")
	ch.Send(ctx, "second")

	fmt.Printf("Buffer full: %d/%d\n", ch.Len(), ch.Cap())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch.Send(ctx, "third")
	}()

	// Give the goroutine time to block
	time.Sleep(50 * time.Millisecond)

	// Receive to unblock the sender
	val, _ := ch.Receive(ctx)
	wg.Wait()

	fmt.Printf("Received: %s\n", val)
	fmt.Printf("Buffer: %d/%d\n", ch.Len(), ch.Cap())

	// Output:
	// Buffer full: 2/2
	// Received: first
	// Buffer: 2/2
}

// Example_dropOldest demonstrates conflation: only the newest values survive.
func Example_dropOldest() {
	ch := NewWithConfig[int](Config{BufferSize: 1, Strategy: DropOldest})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ch.Send(ctx, i)
	}
	ch.Close()

	for v := range ch.All(ctx) {
		fmt.Printf("Latest: %d\n", v)
	}
	fmt.Printf("Dropped: %d\n", ch.Stats().DroppedCount)

	// Output:
	// Latest: 5
	// Dropped: 4
}

// Example_closeWithError demonstrates propagating a producer failure to the consumer.
func Example_closeWithError() {
	ch := New[string](Unlimited)
	ctx := context.Background()

	ch.Send(ctx, "Lima")
	ch.CloseWithError(errors.New("no more cities"))

	city, _ := ch.Receive(ctx)
	fmt.Println(city)

	_, err := ch.Receive(ctx)
	fmt.Printf("Closed: %v\n", errors.Is(err, ErrChannelClosed))
	fmt.Println(err)

	// Output:
	// Lima
	// Closed: true
	// channel is closed: no more cities
}
