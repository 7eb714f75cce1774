// Package taskservice holds the task bodies exposed by the gateway: a
// latency-bound task that sleeps and records an event, and a CPU-bound sum on
// the heavy pool. Region reads and writes hold the shared reader/writer region
// around the event log. All of them honour cancellation and report it as
// errors.ErrInterrupted.
package taskservice
