package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
)

// Name returns the configured pool name.
func (p *workerPool) Name() string {
	return p.config.Name
}

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task, giving up if it cannot be queued within timeout.
// The timeout applies to queuing only; the task itself runs without it.
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return p.submit(context.Background(), task, timer.C)
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the task's Execute method, enabling timeout and
// cancellation propagation. If the pool has a TaskTimeout configured, the
// effective timeout will be the minimum of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	return p.submit(ctx, task, nil)
}

func (p *workerPool) submit(ctx context.Context, task Task, expired <-chan time.Time) error {
	if err := validation.ValidateNotNil("workerpool", "task", task); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	if p.isShutdown {
		p.mu.RUnlock()
		return fmt.Errorf("cannot submit task to %s: %w", p.config.Name, tferrors.ErrPoolClosed)
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	// Check if context is already canceled before attempting to queue
	// This ensures deterministic behavior for pre-canceled contexts
	select {
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	default:
	}

	twc := taskWithContext{
		task: task,
		ctx:  ctx,
	}

	p.totalSubmitted.Add(1)
	select {
	case p.taskQueue <- twc:
		return nil
	case <-p.shutdownCh:
		p.totalSubmitted.Add(-1)
		return fmt.Errorf("cannot submit task to %s: %w", p.config.Name, tferrors.ErrPoolClosed)
	case <-ctx.Done():
		p.totalSubmitted.Add(-1)
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	case <-expired:
		p.totalSubmitted.Add(-1)
		return fmt.Errorf("cannot submit task to %s: %w", p.config.Name, tferrors.ErrTimeout)
	}
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		p.state.Store(int32(StateShuttingDown))

		// Wake submitters blocked on a full queue
		close(p.shutdownCh)

		go func() {
			// No sender can reach the queue once registered submitters are gone
			p.submitters.Wait()
			close(p.taskQueue)

			p.workerWg.Wait()
			p.cancelAll()
			p.state.Store(int32(StateStopped))
			close(p.done)
		}()
	})

	return p.done
}

// ShutdownWithTimeout drains for up to timeout, then cancels every remaining
// task and waits at most ForceGrace for workers to notice.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	drained := p.Shutdown()
	out := make(chan struct{})

	go func() {
		defer close(out)

		select {
		case <-drained:
			return
		default:
		}

		if timeout > 0 && waitFor(drained, timeout) {
			return
		}

		// Nothing left to cancel; the workers only need a moment to exit
		if p.totalSubmitted.Load() == p.totalCompleted.Load() && waitFor(drained, p.config.ForceGrace) {
			return
		}

		p.forced.Store(true)
		p.cancelAll()
		waitFor(drained, p.config.ForceGrace)
	}()

	return out
}

// State returns the current lifecycle state.
func (p *workerPool) State() State {
	return State(p.state.Load())
}

// ForceCancelled reports whether a shutdown cancelled tasks at its deadline.
func (p *workerPool) ForceCancelled() bool {
	return p.forced.Load()
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// run is the main loop for a worker. It keeps draining the queue after
// shutdown starts and exits once the queue is closed and empty.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	if w.pool.config.OnWorkerStop != nil {
		defer w.pool.config.OnWorkerStop(w.id)
	}

	for twc := range w.pool.taskQueue {
		w.executeTask(twc)
	}
}

// executeTask executes a single task with the provided context.
// Queued tasks run even after a forced cancellation so their cleanup executes;
// they observe an already-cancelled context.
func (w *worker) executeTask(twc taskWithContext) {
	p := w.pool
	start := time.Now()
	var err error

	// Start with the caller-provided context
	parent := twc.ctx
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(p.baseCtx, cancel)
	defer stop()

	// Apply TaskTimeout if configured
	// The effective timeout is the minimum of the context deadline and TaskTimeout
	if p.config.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancelTimeout()
	}

	p.activeWorkers.Add(1)
	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(w.id, twc.task)
	}

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(twc.task, r)
			}
			err = fmt.Errorf("%w: task panicked: %v\nStack trace:\n%s", tferrors.ErrTaskFailed, r, debug.Stack())
		}

		p.activeWorkers.Add(-1)
		p.totalCompleted.Add(1)

		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(w.id, Result{
				Task:     twc.task,
				Error:    err,
				Duration: time.Since(start),
				WorkerID: w.id,
			})
		}
	}()

	err = twc.task.Execute(ctx)
}

// waitFor reports whether ch closed within d.
func waitFor(ch <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
