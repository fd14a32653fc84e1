package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResolveNamespace(t *testing.T) {
	promRegistry := prometheus.NewRegistry()
	r := Resolve(Config{Enabled: true, Registry: promRegistry, Namespace: "demo"})

	r.StageItems.WithLabelValues("map", "format").Add(3)

	families, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "demo_stage_items_total" {
			found = true
		}
		if !strings.HasPrefix(mf.GetName(), "demo_") {
			t.Errorf("metric %s should use the configured namespace", mf.GetName())
		}
	}
	if !found {
		t.Error("demo_stage_items_total not gathered")
	}
}

func TestResolveDefaultRegisterer(t *testing.T) {
	r := Resolve(Config{Enabled: true})
	if r != DefaultRegistry {
		t.Error("nil Registry should resolve to DefaultRegistry")
	}
}

func TestResolveDefaultRegistererCustomNamespace(t *testing.T) {
	r := Resolve(Config{Enabled: true, Namespace: "myapp"})
	if r == DefaultRegistry {
		t.Fatal("a custom namespace should not resolve to DefaultRegistry")
	}
	if again := Resolve(Config{Enabled: true, Namespace: "myapp"}); again != r {
		t.Error("same registerer and namespace should share a Registry")
	}

	r.TasksLaunched.WithLabelValues("ns_test").Inc()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "myapp_task_launched_total" {
			found = true
		}
	}
	if !found {
		t.Error("myapp_task_launched_total not gathered from the default registerer")
	}
}

func TestResolveKeepsNamespacesApart(t *testing.T) {
	promRegistry := prometheus.NewRegistry()
	a := Resolve(Config{Enabled: true, Registry: promRegistry, Namespace: "a"})
	b := Resolve(Config{Enabled: true, Registry: promRegistry, Namespace: "b"})
	if a == b {
		t.Fatal("different namespaces on one registerer should resolve to different registries")
	}

	a.ChannelSends.WithLabelValues("ch").Inc()
	b.ChannelSends.WithLabelValues("ch").Add(2)

	if got := testutil.ToFloat64(a.ChannelSends.WithLabelValues("ch")); got != 1 {
		t.Errorf("a sends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.ChannelSends.WithLabelValues("ch")); got != 2 {
		t.Errorf("b sends = %v, want 2", got)
	}
}

func TestTaskDurationHistogram(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	r.TaskDuration.WithLabelValues("scope").Observe(0.25)

	if got := testutil.CollectAndCount(r.TaskDuration); got != 1 {
		t.Errorf("CollectAndCount = %d, want 1", got)
	}
}
