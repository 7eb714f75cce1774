// Package gateway is the HTTP front end of taskflowd. It translates requests
// into task service calls and shared state operations and renders JSON.
//
// Routes:
//
//	POST /api/tasks/async?taskName=     submit a latency task
//	POST /api/tasks/heavy?iterations=   submit a compute task on the heavy pool
//	GET  /api/tasks/status              in-flight count, counter value, timestamp
//	POST /api/tasks/cache?key=&value=   store a cache entry
//	GET  /api/tasks/cache/{key}         read a cache entry (value is null when absent)
//	POST /api/tasks/queue?item=         offer an item to the bounded queue
//	GET  /api/tasks/events              event log snapshot
//	GET  /api/pools                     per-pool statistics
//	GET  /health                        liveness
//	GET  /metrics                       Prometheus metrics
//
// Missing or invalid parameters yield 400 with {"error": ...}; submissions
// after shutdown has begun yield 503.
package gateway
