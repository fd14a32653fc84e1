package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates basic metrics configuration.
func Example_basicUsage() {
	// Create a separate registry for this example
	registry := NewRegistry(prometheus.NewRegistry())

	registry.ChannelSends.WithLabelValues("cities").Add(6)
	registry.ChannelReceives.WithLabelValues("cities").Add(4)
	registry.TasksLaunched.WithLabelValues("demo").Inc()

	fmt.Printf("sends: %.0f\n", testutil.ToFloat64(registry.ChannelSends.WithLabelValues("cities")))
	fmt.Printf("receives: %.0f\n", testutil.ToFloat64(registry.ChannelReceives.WithLabelValues("cities")))
	fmt.Printf("tasks: %.0f\n", testutil.ToFloat64(registry.TasksLaunched.WithLabelValues("demo")))

	// Output:
	// sends: 6
	// receives: 4
	// tasks: 1
}

// Example_resolve demonstrates sharing one Registry between components.
func Example_resolve() {
	promRegistry := prometheus.NewRegistry()
	config := Config{Enabled: true, Registry: promRegistry}

	first := Resolve(config)
	second := Resolve(config)
	disabled := Resolve(Config{Enabled: false})

	fmt.Printf("shared: %v\n", first == second)
	fmt.Printf("disabled is nil: %v\n", disabled == nil)

	// Output:
	// shared: true
	// disabled is nil: true
}

// Example_configuration demonstrates different metrics configurations.
func Example_configuration() {
	defaultConfig := DefaultConfig()
	fmt.Printf("Default enabled: %v\n", defaultConfig.Enabled)
	fmt.Printf("Default namespace: %s\n", defaultConfig.Namespace)

	customConfig := Config{
		Enabled:   false,
		Namespace: "myapp",
	}
	fmt.Printf("Custom enabled: %v\n", customConfig.Enabled)
	fmt.Printf("Custom namespace: %s\n", customConfig.Namespace)

	// Output:
	// Default enabled: true
	// Default namespace: chanflow
	// Custom enabled: false
	// Custom namespace: myapp
}
