// Package metrics provides Prometheus instrumentation for taskflow components.
//
// A Registry groups the collectors for task accounting, worker pools, the
// scheduler and shared state. Components accept a *Registry and skip
// instrumentation when it is nil.
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//	mgr, _ := manager.New(manager.DefaultConfig(), manager.WithMetrics(m))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics
