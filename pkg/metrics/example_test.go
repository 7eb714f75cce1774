package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates recording task metrics on an isolated registry.
func Example_basicUsage() {
	registry := NewRegistry(prometheus.NewRegistry())

	registry.TasksSubmitted.WithLabelValues("general").Add(3)
	registry.TasksCompleted.WithLabelValues("general").Add(2)
	registry.TasksFailed.WithLabelValues("general").Inc()
	registry.TasksInFlight.Set(0)

	fmt.Println(testutil.ToFloat64(registry.TasksSubmitted.WithLabelValues("general")))
	fmt.Println(testutil.ToFloat64(registry.TasksFailed.WithLabelValues("general")))

	// Output:
	// 3
	// 1
}

// Example_disabled shows that a disabled Config yields no registry.
func Example_disabled() {
	fmt.Println(Config{Enabled: false}.Build() == nil)
	fmt.Println(Config{Enabled: true, Registry: prometheus.NewRegistry()}.Build() != nil)

	// Output:
	// true
	// true
}
