package future

import (
	"context"
	"fmt"
	"sync"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

// State is the settlement state of a Handle.
type State int32

const (
	// Pending means the task has not produced a result yet.
	Pending State = iota
	// Completed means the task returned a value.
	Completed
	// Failed means the task returned an error or panicked.
	Failed
	// Cancelled means the task observed cancellation before finishing.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle is the submitter's view of a value-returning task.
// It is settled exactly once by the executing worker.
type Handle[T any] struct {
	label  string
	pool   string
	cancel context.CancelFunc

	once  sync.Once
	done  chan struct{}
	mu    sync.RWMutex
	state State
	value T
	err   error
}

// New returns a pending handle. cancel may be nil.
func New[T any](label, pool string, cancel context.CancelFunc) *Handle[T] {
	return &Handle[T]{
		label:  label,
		pool:   pool,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Label returns the task label.
func (h *Handle[T]) Label() string { return h.label }

// Pool returns the name of the pool the task was routed to.
func (h *Handle[T]) Pool() string { return h.pool }

// State returns the current settlement state.
func (h *Handle[T]) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Done returns a channel closed once the handle is settled.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Resolve settles the handle from a task's return values. Interruption errors
// settle it as Cancelled, any other error as Failed. Only the first call has
// an effect; it reports whether this call settled the handle.
func (h *Handle[T]) Resolve(value T, err error) bool {
	settled := false
	h.once.Do(func() {
		h.mu.Lock()
		switch {
		case err == nil:
			h.state = Completed
			h.value = value
		case tferrors.IsInterrupted(err):
			h.state = Cancelled
			h.err = tferrors.Interrupted(err)
		default:
			h.state = Failed
			h.err = err
		}
		h.mu.Unlock()

		close(h.done)
		if h.cancel != nil {
			h.cancel()
		}
		settled = true
	})
	return settled
}

// Cancel asks the task to stop by cancelling its context. A task that already
// finished is unaffected.
func (h *Handle[T]) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Await blocks until the handle settles or ctx is done.
// A ctx error is reported wrapped in ErrInterrupted; the task keeps running.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.result()
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("awaiting %s: %w", h.label, tferrors.Interrupted(ctx.Err()))
	}
}

// AwaitTimeout blocks for at most d and returns ErrTimeout if the task is
// still pending.
func (h *Handle[T]) AwaitTimeout(d time.Duration) (T, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.result()
	case <-timer.C:
		var zero T
		return zero, fmt.Errorf("awaiting %s after %v: %w", h.label, d, tferrors.ErrTimeout)
	}
}

// Poll returns the result without blocking. ok is false while pending.
func (h *Handle[T]) Poll() (value T, ok bool, err error) {
	select {
	case <-h.done:
		value, err = h.result()
		return value, true, err
	default:
		return value, false, nil
	}
}

func (h *Handle[T]) result() (T, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.value, h.err
}
