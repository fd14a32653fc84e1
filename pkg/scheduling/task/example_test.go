package task_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
)

// Example demonstrates launching tasks and observing their final states.
func Example() {
	scope := task.NewScope(context.Background(), task.WithName("example"))

	quick := scope.Launch(func(ctx context.Context) error {
		return suspend.Delay(ctx, time.Millisecond)
	})
	slow := scope.Launch(func(ctx context.Context) error {
		return suspend.Delay(ctx, time.Minute)
	})

	quick.Await(context.Background())
	slow.Cancel()
	slow.Await(context.Background())

	fmt.Printf("quick: %s\n", quick.State())
	fmt.Printf("slow: %s\n", slow.State())

	// Output:
	// quick: completed
	// slow: cancelled
}

// ExampleAsync demonstrates computing values concurrently.
func ExampleAsync() {
	scope := task.NewScope(context.Background())

	food := task.Async(scope, func(ctx context.Context) (string, error) {
		return "Ceviche", nil
	})
	city := task.Async(scope, func(ctx context.Context) (string, error) {
		return "Lima", nil
	})

	f, _ := food.Await(context.Background())
	c, _ := city.Await(context.Background())
	fmt.Printf("%s from %s\n", f, c)

	// Output:
	// Ceviche from Lima
}

// ExampleCritical demonstrates a critical failure cancelling its siblings.
func ExampleCritical() {
	scope := task.NewScope(context.Background())

	sibling := scope.Launch(func(ctx context.Context) error {
		return suspend.Delay(ctx, time.Minute)
	})
	scope.Launch(func(ctx context.Context) error {
		return errors.New("payment service down")
	}, task.Critical())

	err := scope.Wait(context.Background())
	fmt.Printf("scope: %v\n", err)
	fmt.Printf("sibling: %s\n", sibling.State())

	// Output:
	// scope: payment service down
	// sibling: cancelled
}

// ExampleWithTimeout demonstrates bounding an operation in time.
func ExampleWithTimeout() {
	_, err := task.WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		if err := suspend.Delay(ctx, time.Second); err != nil {
			return "", err
		}
		return "too late", nil
	})
	fmt.Println(err)

	// Output:
	// operation timed out after 10ms
}
