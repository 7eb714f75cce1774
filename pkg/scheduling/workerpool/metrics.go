package workerpool

import (
	"context"
	"errors"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     Pool
	name     string
	registry *metrics.Registry
}

// NewWithConfigAndMetrics creates a new worker pool with custom config and metrics.
// A nil registry returns the bare pool.
func NewWithConfigAndMetrics(config Config, registry *metrics.Registry) (Pool, error) {
	basePool, err := NewWithConfigSafe(config)
	if err != nil {
		return nil, err
	}

	if registry == nil {
		return basePool, nil
	}

	return Instrument(basePool, registry), nil
}

// Instrument wraps an existing pool so every submission and execution is recorded.
func Instrument(pool Pool, registry *metrics.Registry) *MetricsPool {
	mp := &MetricsPool{
		pool:     pool,
		name:     pool.Name(),
		registry: registry,
	}

	mp.updateMetrics()
	return mp
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Name returns the wrapped pool's name.
func (mp *MetricsPool) Name() string {
	return mp.name
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (mp *MetricsPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	if task == nil {
		return mp.pool.SubmitWithTimeout(nil, timeout)
	}
	return mp.record(mp.pool.SubmitWithTimeout(mp.wrap(task), timeout))
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.pool.SubmitWithContext(ctx, nil)
	}
	return mp.record(mp.pool.SubmitWithContext(ctx, mp.wrap(task)))
}

func (mp *MetricsPool) wrap(task Task) Task {
	return &metricsTask{
		original:   task,
		pool:       mp,
		submitTime: time.Now(),
	}
}

func (mp *MetricsPool) record(err error) error {
	switch {
	case err == nil:
		mp.registry.TasksSubmitted.WithLabelValues(mp.name).Inc()
	case errors.Is(err, tferrors.ErrClosed):
		mp.registry.TasksRejected.WithLabelValues(mp.name).Inc()
	}
	mp.updateMetrics()
	return err
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original   Task
	pool       *MetricsPool
	submitTime time.Time
}

// Execute runs the original task and records metrics.
func (mt *metricsTask) Execute(ctx context.Context) (err error) {
	start := time.Now()
	name := mt.pool.name
	reg := mt.pool.registry

	reg.TaskQueueWait.WithLabelValues(name).Observe(start.Sub(mt.submitTime).Seconds())

	defer func() {
		// Count panics as failures before the pool recovers them
		if r := recover(); r != nil {
			reg.TasksExecuted.WithLabelValues(name).Inc()
			reg.TasksFailed.WithLabelValues(name).Inc()
			mt.pool.updateMetrics()
			panic(r)
		}

		reg.TaskExecutionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		reg.TasksExecuted.WithLabelValues(name).Inc()

		switch {
		case err == nil:
			reg.TasksCompleted.WithLabelValues(name).Inc()
		case tferrors.IsInterrupted(err):
			reg.TasksCancelled.WithLabelValues(name).Inc()
		default:
			reg.TasksFailed.WithLabelValues(name).Inc()
		}

		mt.pool.updateMetrics()
	}()

	return mt.original.Execute(ctx)
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// ShutdownWithTimeout shuts down the pool with a timeout.
func (mp *MetricsPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	return mp.pool.ShutdownWithTimeout(timeout)
}

// State returns the wrapped pool's lifecycle state.
func (mp *MetricsPool) State() State {
	return mp.pool.State()
}

// ForceCancelled reports whether the wrapped pool cancelled tasks on shutdown.
func (mp *MetricsPool) ForceCancelled() bool {
	return mp.pool.ForceCancelled()
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	queueSize := mp.pool.QueueSize()
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(queueSize))
	return queueSize
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	activeWorkers := mp.pool.ActiveWorkers()
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(activeWorkers))
	return activeWorkers
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}
