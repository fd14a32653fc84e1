package benchmark

import (
	"context"
	"strconv"
	"testing"

	"github.com/vnykmshr/chanflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
)

func benchScope(b *testing.B) *task.Scope {
	b.Helper()
	scope := task.NewScope(context.Background(), task.WithName("bench"))
	b.Cleanup(func() {
		scope.Cancel(nil)
		_ = scope.Wait(context.Background())
	})
	return scope
}

func benchItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

// BenchmarkPipelineMap measures a producer followed by one Map stage per
// iteration, collected to the end.
func BenchmarkPipelineMap(b *testing.B) {
	for _, capacity := range []int{0, 16, 256} {
		b.Run("capacity"+strconv.Itoa(capacity), func(b *testing.B) {
			scope := benchScope(b)
			items := benchItems(1000)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				src := pipeline.FromSlice(scope, items, pipeline.WithCapacity(capacity))
				doubled := pipeline.Map(scope, src, func(_ context.Context, v int) (int, error) {
					return v * 2, nil
				}, pipeline.WithCapacity(capacity))
				if _, err := pipeline.Count(ctx, doubled); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPipelineWorkers measures a Map stage run by several workers.
func BenchmarkPipelineWorkers(b *testing.B) {
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(strconv.Itoa(workers)+"workers", func(b *testing.B) {
			scope := benchScope(b)
			items := benchItems(1000)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				src := pipeline.FromSlice(scope, items, pipeline.WithCapacity(64))
				squares := pipeline.Map(scope, src, func(_ context.Context, v int) (int, error) {
					return v * v, nil
				}, pipeline.WithWorkers(workers), pipeline.WithCapacity(64))
				if _, err := pipeline.Count(ctx, squares); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPipelineChain measures a longer chain of stages.
func BenchmarkPipelineChain(b *testing.B) {
	scope := benchScope(b)
	items := benchItems(1000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src := pipeline.FromSlice(scope, items)
		even := pipeline.Filter(scope, src, func(v int) bool { return v%2 == 0 })
		labelled := pipeline.MapCatch(scope, even,
			func(_ context.Context, v int) (string, error) { return strconv.Itoa(v), nil },
			func(int, error) string { return "" })
		first := pipeline.Take(scope, labelled, 100)
		if _, err := pipeline.Collect(ctx, first); err != nil {
			b.Fatal(err)
		}
	}
}
