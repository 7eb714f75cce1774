/*
Package taskflow runs application work on managed worker pools and exposes it
over HTTP.

Task execution (pkg/scheduling):
  - workerpool: Fixed-size pools with bounded queues and two-phase shutdown
  - future: Handles for awaiting, polling and cancelling submitted work
  - scheduler: Delayed, fixed-rate and cron scheduling onto a pool
  - manager: The general, heavy and scheduled pools behind one facade

Shared state (pkg/sharedstate):
  - Cache, bounded queue, event log, counter and reader/writer region
  - rediscache: Optional Redis-backed cache for the gateway

Services:
  - taskservice: Latency-bound and CPU-bound task bodies
  - internal/gateway: HTTP routes for submitting and inspecting work
  - cmd/taskflowd: The daemon wiring everything together

Example usage:

	import (
		"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	)

	m, _ := manager.New(manager.DefaultConfig())
	defer m.Shutdown(30 * time.Second)

	h, _ := manager.SubmitWithResult(m, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := h.Await(ctx)
*/
package taskflow
