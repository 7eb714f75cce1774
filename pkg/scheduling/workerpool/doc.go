/*
Package workerpool provides a bounded worker pool with an explicit lifecycle.

A pool runs a fixed number of worker goroutines that pull tasks from a bounded
queue. It moves through three states: Running, ShuttingDown and Stopped.

Basic usage:

	pool := workerpool.NewWithConfig(workerpool.Config{
		Name:        "general",
		WorkerCount: 8,
		QueueSize:   1000,
	})
	defer func() { <-pool.ShutdownWithTimeout(5 * time.Second) }()

	err := pool.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		return doWork(ctx)
	}))

Task Interface:

	type Task interface {
		Execute(ctx context.Context) error
	}

Tasks receive a context derived from the submission context. The context is
cancelled when TaskTimeout elapses or when ShutdownWithTimeout gives up on
draining. Long-running tasks must watch ctx.Done().

Shutdown:

Shutdown stops accepting submissions (they fail with errors.ErrPoolClosed),
wakes submitters blocked on a full queue, and lets workers drain every queued
task before they exit. Tasks still queued when a forced cancellation happens
are executed with an already-cancelled context, so deferred cleanup inside a
task body always runs.

	<-pool.Shutdown()                         // wait for a full drain
	<-pool.ShutdownWithTimeout(time.Second)   // drain, then cancel stragglers

ShutdownWithTimeout never blocks longer than the timeout plus Config.ForceGrace,
even when a task ignores its context.

Errors and panics:

Task errors are reported through Config.OnTaskComplete. Panics are recovered,
wrapped with errors.ErrTaskFailed together with the stack trace, and reported
the same way; the worker keeps running.

Metrics:

NewWithConfigAndMetrics and Instrument wrap a pool in a MetricsPool that
records submissions, rejections, queue wait, execution time and outcome per
pool name.
*/
package workerpool
