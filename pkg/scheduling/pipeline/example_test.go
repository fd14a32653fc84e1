package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vnykmshr/chanflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
)

func Example() {
	ctx := context.Background()
	scope := task.NewScope(ctx, task.WithName("letters"))
	defer scope.Wait(ctx)

	letters := pipeline.FromSlice(scope, []string{"A", "B", "C"})
	lower := pipeline.Map(scope, letters, func(ctx context.Context, s string) (string, error) {
		return strings.ToLower(s), nil
	})

	items, err := pipeline.Collect(ctx, lower)
	fmt.Println(items, err)
	// Output: [a b c] <nil>
}

func ExampleMapCatch() {
	ctx := context.Background()
	scope := task.NewScope(ctx)
	defer scope.Wait(ctx)

	numbers := pipeline.FromSlice(scope, []int{1, 2, 3, 4, 5})
	results := pipeline.MapCatch(scope, numbers,
		func(ctx context.Context, n int) (string, error) {
			if n == 3 {
				return "", errors.New("cannot process 3")
			}
			return fmt.Sprintf("Processed %d", n), nil
		},
		func(n int, err error) string {
			return "Error: " + err.Error()
		},
	)

	_ = pipeline.ForEach(ctx, results, func(s string) error {
		fmt.Println(s)
		return nil
	})
	// Output:
	// Processed 1
	// Processed 2
	// Error: cannot process 3
	// Processed 4
	// Processed 5
}

func ExampleTake() {
	ctx := context.Background()
	scope := task.NewScope(ctx)
	defer scope.Wait(ctx)

	squares := pipeline.Produce(scope, func(ctx context.Context, emit pipeline.Emitter[int]) error {
		for i := 1; ; i++ {
			if err := emit(i * i); err != nil {
				return err
			}
		}
	})

	first, _ := pipeline.Collect(ctx, pipeline.Take(scope, squares, 4))
	fmt.Println(first)
	// Output: [1 4 9 16]
}

func ExampleZip() {
	ctx := context.Background()
	scope := task.NewScope(ctx)
	defer scope.Wait(ctx)

	names := pipeline.FromSlice(scope, []string{"Lima", "Quito", "Bogota"})
	countries := pipeline.FromSlice(scope, []string{"Peru", "Ecuador", "Colombia"})
	capitals := pipeline.Zip(scope, names, countries, func(city, country string) string {
		return city + " is the capital of " + country
	})

	_ = pipeline.ForEach(ctx, capitals, func(s string) error {
		fmt.Println(s)
		return nil
	})
	// Output:
	// Lima is the capital of Peru
	// Quito is the capital of Ecuador
	// Bogota is the capital of Colombia
}
