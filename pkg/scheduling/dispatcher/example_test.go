package dispatcher_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/chanflow/pkg/scheduling/dispatcher"
)

// Example_single demonstrates a one-worker pool that runs functions in order.
func Example_single() {
	single := dispatcher.NewSingle("counter")
	counter := 0

	for i := 0; i < 100; i++ {
		single.Dispatch(context.Background(), func() { counter++ })
	}
	<-single.Shutdown()

	fmt.Printf("Counter: %d\n", counter)
	fmt.Printf("Completed: %d\n", single.TotalCompleted())

	// Output:
	// Counter: 100
	// Completed: 100
}

// Example_unconfined demonstrates running on the caller's goroutine.
func Example_unconfined() {
	d := dispatcher.Unconfined()

	d.Dispatch(context.Background(), func() {
		fmt.Println("inside dispatched function")
	})
	fmt.Println("after Dispatch")

	// Output:
	// inside dispatched function
	// after Dispatch
}
