package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// State is the lifecycle state of a pool.
type State int32

const (
	// StateRunning accepts submissions.
	StateRunning State = iota
	// StateShuttingDown rejects submissions while queued and running tasks drain.
	StateShuttingDown
	// StateStopped means every worker has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Pool represents a worker pool that can execute tasks concurrently.
type Pool interface {
	// Name identifies the pool in logs and metrics.
	Name() string

	// Submit adds a task to the pool for execution.
	// Returns an error if the pool is shut down or if the task cannot be queued.
	Submit(task Task) error

	// SubmitWithTimeout submits a task with a timeout for queuing.
	// If the task cannot be queued within the timeout, it returns an error.
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// SubmitWithContext submits a task with a context for cancellation.
	// The context bounds the queuing operation and is also the parent of the
	// context the task executes with.
	SubmitWithContext(ctx context.Context, task Task) error

	// Shutdown initiates a graceful shutdown of the pool.
	// No new tasks will be accepted, but queued tasks will be completed.
	// Returns a channel that closes when shutdown is complete.
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout shuts down the pool with a timeout.
	// If shutdown doesn't complete within the timeout, remaining tasks are canceled.
	// The returned channel closes once the pool drained or the cancellation grace
	// period elapsed, so it never blocks on a task that ignores its context.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	// State returns the current lifecycle state.
	State() State

	// ForceCancelled reports whether a shutdown had to cancel running tasks.
	ForceCancelled() bool

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name identifies the pool. Defaults to "pool".
	Name string

	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// If 0, submissions hand off directly to an idle worker.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// ForceGrace bounds how long ShutdownWithTimeout waits after cancelling
	// remaining tasks. Defaults to 250ms.
	ForceGrace time.Duration

	// PanicHandler is called when a task panics. The panic is still reported
	// as an error in the task's Result.
	PanicHandler func(task Task, recovered interface{})

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

const defaultForceGrace = 250 * time.Millisecond

// workerPool implements the Pool interface.
type workerPool struct {
	config Config

	// Core pool state
	workers      []worker
	taskQueue    chan taskWithContext
	shutdownCh   chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	// baseCtx parents every task context; cancelAll is the forced-shutdown escape hatch.
	baseCtx   context.Context
	cancelAll context.CancelFunc

	// mu orders submitter registration against the shutdown flag.
	mu         sync.RWMutex
	isShutdown bool
	submitters sync.WaitGroup

	state          atomic.Int32
	forced         atomic.Bool
	activeWorkers  atomic.Int64
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64

	// Worker management
	workerWg sync.WaitGroup
}

type taskWithContext struct {
	task Task
	ctx  context.Context
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}

// New creates a new worker pool with the specified number of workers and queue size.
// It panics on invalid arguments; use NewSafe to get an error instead.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewSafe is like New but returns a validation error instead of panicking.
func NewSafe(workerCount, queueSize int) (Pool, error) {
	return NewWithConfigSafe(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
func NewWithConfig(config Config) Pool {
	pool, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return pool
}

// NewWithConfigSafe creates a new worker pool, validating config first.
func NewWithConfigSafe(config Config) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.QueueSize < 0 {
		return nil, tferrors.NewValidationError("workerpool", "QueueSize", config.QueueSize, "cannot be negative").
			WithHint("use 0 for direct hand-off or a positive capacity")
	}
	if err := validation.ValidateNonNegativeDuration("workerpool", "TaskTimeout", config.TaskTimeout); err != nil {
		return nil, err
	}

	if config.Name == "" {
		config.Name = "pool"
	}
	if config.ForceGrace <= 0 {
		config.ForceGrace = defaultForceGrace
	}

	baseCtx, cancelAll := context.WithCancel(context.Background())

	pool := &workerPool{
		config:     config,
		taskQueue:  make(chan taskWithContext, config.QueueSize),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
		baseCtx:    baseCtx,
		cancelAll:  cancelAll,
	}

	// Create and start workers
	pool.workers = make([]worker, config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		pool.workers[i] = worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go pool.workers[i].run()
	}

	return pool, nil
}
