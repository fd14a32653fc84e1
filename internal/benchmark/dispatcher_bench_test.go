package benchmark

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/vnykmshr/chanflow/pkg/scheduling/dispatcher"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
)

// BenchmarkPoolDispatch measures Dispatch on pools of several sizes.
func BenchmarkPoolDispatch(b *testing.B) {
	for _, workers := range []int{1, 4, 8} {
		b.Run(strconv.Itoa(workers)+"workers", func(b *testing.B) {
			pool, err := dispatcher.NewPool(dispatcher.Config{
				Name:      "bench",
				Workers:   workers,
				QueueSize: 1000,
			})
			if err != nil {
				b.Fatalf("failed to create pool: %v", err)
			}

			var wg sync.WaitGroup
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				wg.Add(1)
				if err := pool.Dispatch(ctx, wg.Done); err != nil {
					wg.Done()
				}
			}
			wg.Wait()
			b.StopTimer()

			<-pool.Shutdown()
		})
	}
}

// BenchmarkScopeLaunch measures launching and awaiting tasks on each
// dispatcher kind.
func BenchmarkScopeLaunch(b *testing.B) {
	pool, err := dispatcher.NewPool(dispatcher.Config{Name: "bench", Workers: 4, QueueSize: 100})
	if err != nil {
		b.Fatalf("failed to create pool: %v", err)
	}
	defer func() { <-pool.Shutdown() }()

	dispatchers := []dispatcher.Dispatcher{dispatcher.Default(), dispatcher.Unconfined(), pool}
	for _, d := range dispatchers {
		b.Run(d.Name(), func(b *testing.B) {
			scope := task.NewScope(context.Background(), task.WithDispatcher(d))
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				scope.Launch(func(context.Context) error { return nil })
			}
			if err := scope.Wait(ctx); err != nil {
				b.Fatal(err)
			}
		})
	}
}

// BenchmarkAsyncAwait measures the round trip of a deferred value.
func BenchmarkAsyncAwait(b *testing.B) {
	scope := task.NewScope(context.Background())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := task.Async(scope, func(context.Context) (int, error) { return i, nil })
		if _, err := d.Await(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
