package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	tfcontext "github.com/vnykmshr/taskflow/pkg/common/context"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/future"
	"github.com/vnykmshr/taskflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// Manager owns the general, heavy and scheduled pools and tracks how many
// tasks are in flight across them.
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Registry

	pools     map[string]workerpool.Pool
	poolOrder []string
	sched     scheduler.Scheduler

	inFlight atomic.Int64
	seq      atomic.Uint64
	closed   atomic.Bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds and starts the pools described by cfg.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:   cfg,
		pools: make(map[string]workerpool.Pool, 3),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.OrNop(m.logger).With(zap.String("component", "manager"))

	for _, def := range []struct {
		name    string
		workers int
		queue   int
	}{
		{PoolGeneral, cfg.GeneralWorkers, cfg.GeneralQueue},
		{PoolHeavy, cfg.HeavyWorkers, cfg.HeavyQueue},
		{PoolScheduled, cfg.ScheduledWorkers, cfg.ScheduledQueue},
	} {
		pool, err := workerpool.NewWithConfigAndMetrics(workerpool.Config{
			Name:         def.name,
			WorkerCount:  def.workers,
			QueueSize:    def.queue,
			ForceGrace:   cfg.ForceGrace,
			TaskTimeout:  cfg.TaskTimeout,
			PanicHandler: m.panicHandler(def.name),
		}, m.metrics)
		if err != nil {
			m.closePools()
			return nil, fmt.Errorf("create %s pool: %w", def.name, err)
		}
		m.pools[def.name] = pool
		m.poolOrder = append(m.poolOrder, def.name)
	}

	m.sched = scheduler.NewWithConfig(scheduler.Config{
		WorkerPool:   m.pools[PoolScheduled],
		TickInterval: cfg.TickInterval,
		Logger:       m.logger,
		Metrics:      m.metrics,
	})
	if err := m.sched.Start(); err != nil {
		m.closePools()
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	m.logger.Info("worker pools started",
		zap.Int("general_workers", cfg.GeneralWorkers),
		zap.Int("heavy_workers", cfg.HeavyWorkers),
		zap.Int("scheduled_workers", cfg.ScheduledWorkers))

	return m, nil
}

func (m *Manager) closePools() {
	for _, p := range m.pools {
		<-p.ShutdownWithTimeout(0)
	}
}

func (m *Manager) panicHandler(pool string) func(workerpool.Task, interface{}) {
	return func(_ workerpool.Task, recovered interface{}) {
		m.logger.Error("task panicked", zap.String("pool", pool), zap.Any("panic", recovered))
	}
}

func (m *Manager) track() {
	m.inFlight.Add(1)
	if m.metrics != nil {
		m.metrics.TasksInFlight.Inc()
	}
}

func (m *Manager) untrack() {
	m.inFlight.Add(-1)
	if m.metrics != nil {
		m.metrics.TasksInFlight.Dec()
	}
}

func (m *Manager) pool(name string) (workerpool.Pool, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("cannot submit to %s: %w", name, tferrors.ErrPoolClosed)
	}
	p, ok := m.pools[name]
	if !ok {
		return nil, tferrors.NewValidationError("manager", "pool", name, "unknown pool").
			WithHint("use general, heavy or scheduled")
	}
	return p, nil
}

// dispatch counts task as in flight from submission until its body returns,
// whatever the outcome. A rejected submission is uncounted immediately.
func (m *Manager) dispatch(ctx context.Context, p workerpool.Pool, task workerpool.Task) error {
	m.track()
	err := p.SubmitWithContext(ctx, workerpool.TaskFunc(func(ctx context.Context) error {
		defer m.untrack()
		return task.Execute(ctx)
	}))
	if err != nil {
		m.untrack()
		return err
	}
	return nil
}

// SubmitFireAndForget runs task on the general pool. Its error, if any, is
// logged and otherwise discarded.
func (m *Manager) SubmitFireAndForget(task workerpool.Task) error {
	return m.SubmitFireAndForgetTo(PoolGeneral, task)
}

// SubmitFireAndForgetTo is SubmitFireAndForget for a named pool.
func (m *Manager) SubmitFireAndForgetTo(pool string, task workerpool.Task) error {
	if err := validation.ValidateNotNil("manager", "task", task); err != nil {
		return err
	}
	p, err := m.pool(pool)
	if err != nil {
		return err
	}
	return m.dispatch(context.Background(), p, m.logged(pool, "", task))
}

func (m *Manager) logged(pool, id string, task workerpool.Task) workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) error {
		err := task.Execute(ctx)
		if err != nil {
			fields := []zap.Field{zap.String("pool", pool), zap.Error(err)}
			if id != "" {
				fields = append(fields, zap.String("id", id))
			}
			switch {
			case tfcontext.IsTimedOut(ctx):
				m.logger.Warn("task deadline exceeded", fields...)
			case tferrors.IsInterrupted(err):
				m.logger.Debug("task interrupted", fields...)
			default:
				m.logger.Warn("task failed", fields...)
			}
		}
		return err
	})
}

// SubmitWithResult runs fn on the general pool and returns a handle to its
// outcome.
func SubmitWithResult[T any](m *Manager, fn func(ctx context.Context) (T, error)) (*future.Handle[T], error) {
	return SubmitTo(m, PoolGeneral, "", fn)
}

// SubmitTo runs fn on the named pool. An empty label becomes "<pool>-<seq>".
// The handle is settled before the task stops counting as in flight.
func SubmitTo[T any](m *Manager, pool, label string, fn func(ctx context.Context) (T, error)) (*future.Handle[T], error) {
	if fn == nil {
		return nil, validation.ValidateNotNil("manager", "fn", nil)
	}
	p, err := m.pool(pool)
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = fmt.Sprintf("%s-%d", pool, m.seq.Add(1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := future.New[T](label, pool, cancel)

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		var zero T
		defer func() {
			if r := recover(); r != nil {
				h.Resolve(zero, fmt.Errorf("%w: %s panicked: %v", tferrors.ErrTaskFailed, label, r))
				panic(r)
			}
		}()

		// Cancelled while queued
		if err := ctx.Err(); err != nil {
			h.Resolve(zero, err)
			return err
		}

		v, err := fn(ctx)
		h.Resolve(v, err)
		return err
	})

	if err := m.dispatch(ctx, p, task); err != nil {
		cancel()
		return nil, err
	}
	return h, nil
}

// ActiveTaskCount returns the number of submitted tasks whose body has not
// finished. The value is a snapshot; zero does not guarantee quiescence.
func (m *Manager) ActiveTaskCount() int {
	return int(m.inFlight.Load())
}

// Closed reports whether Shutdown has been called.
func (m *Manager) Closed() bool {
	return m.closed.Load()
}

// PoolStats is a point-in-time view of one pool.
type PoolStats struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Workers        int    `json:"workers"`
	ActiveWorkers  int    `json:"activeWorkers"`
	Queued         int    `json:"queued"`
	TotalSubmitted int64  `json:"totalSubmitted"`
	TotalCompleted int64  `json:"totalCompleted"`
}

// PoolStats reports every managed pool in a stable order.
func (m *Manager) PoolStats() []PoolStats {
	stats := make([]PoolStats, 0, len(m.poolOrder))
	for _, name := range m.poolOrder {
		p := m.pools[name]
		stats = append(stats, PoolStats{
			Name:           name,
			State:          p.State().String(),
			Workers:        p.Size(),
			ActiveWorkers:  p.ActiveWorkers(),
			Queued:         p.QueueSize(),
			TotalSubmitted: p.TotalSubmitted(),
			TotalCompleted: p.TotalCompleted(),
		})
	}
	return stats
}

// Shutdown stops the scheduler, closes every pool to new work and waits up to
// drainTimeout for in-flight tasks. Tasks still running after that are
// cancelled and given ForceGrace to return. It returns an error wrapping
// ErrShutdownForced if any task had to be cancelled.
//
// Shutdown is idempotent; concurrent and later calls return the first result.
func (m *Manager) Shutdown(drainTimeout time.Duration) error {
	m.shutdownOnce.Do(func() {
		m.closed.Store(true)
		start := time.Now()
		m.logger.Info("shutting down", zap.Duration("drain_timeout", drainTimeout))

		<-m.sched.Stop()

		var g errgroup.Group
		for _, name := range m.poolOrder {
			p := m.pools[name]
			g.Go(func() error {
				<-p.ShutdownWithTimeout(drainTimeout)
				if p.ForceCancelled() {
					return fmt.Errorf("pool %s: %w", p.Name(), tferrors.ErrShutdownForced)
				}
				return nil
			})
		}
		m.shutdownErr = g.Wait()

		fields := []zap.Field{
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("in_flight", m.ActiveTaskCount()),
		}
		if m.shutdownErr != nil {
			m.logger.Warn("shutdown forced", append(fields, zap.Error(m.shutdownErr))...)
		} else {
			m.logger.Info("shutdown complete", fields...)
		}
	})
	return m.shutdownErr
}
