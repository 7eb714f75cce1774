package taskservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	tfcontext "github.com/vnykmshr/taskflow/pkg/common/context"
	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/scheduling/future"
	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
)

// MaxComputeIterations is the largest iteration count whose sum fits in an int64.
const MaxComputeIterations int64 = 1 << 32

// Config tunes the built-in task bodies.
type Config struct {
	LatencyDelay     time.Duration `mapstructure:"latency_delay"`
	SyncDelay        time.Duration `mapstructure:"sync_delay"`
	RegionDelay      time.Duration `mapstructure:"region_delay"`
	CancelCheckEvery int64         `mapstructure:"cancel_check_every"`
}

// DefaultConfig returns the default task timings.
func DefaultConfig() Config {
	return Config{
		LatencyDelay:     2 * time.Second,
		SyncDelay:        time.Second,
		RegionDelay:      100 * time.Millisecond,
		CancelCheckEvery: 1 << 16,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validation.ValidateNonNegativeDuration("taskservice", "LatencyDelay", c.LatencyDelay); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("taskservice", "SyncDelay", c.SyncDelay); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("taskservice", "RegionDelay", c.RegionDelay); err != nil {
		return err
	}
	if c.CancelCheckEvery <= 0 {
		return tferrors.NewValidationError("taskservice", "CancelCheckEvery", c.CancelCheckEvery, "must be positive")
	}
	return nil
}

// Service runs the latency-bound and CPU-bound task bodies on a manager.
type Service struct {
	m      *manager.Manager
	state  *sharedstate.State
	cfg    Config
	logger *zap.Logger
}

// New returns a Service. A nil logger disables logging.
func New(m *manager.Manager, st *sharedstate.State, cfg Config, logger *zap.Logger) (*Service, error) {
	if m == nil || st == nil {
		return nil, fmt.Errorf("taskservice: manager and state are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		m:      m,
		state:  st,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "taskservice")),
	}, nil
}

// RunLatencyTask simulates a slow I/O-bound task on the general pool.
func (s *Service) RunLatencyTask(name string) (*future.Handle[string], error) {
	if err := validation.ValidateNotEmpty("taskservice", "taskName", name); err != nil {
		return nil, err
	}
	return manager.SubmitWithResult(s.m, func(ctx context.Context) (string, error) {
		return s.latency(ctx, name, s.cfg.LatencyDelay)
	})
}

// RunComputeTask sums 0..iterations-1 on the heavy pool, checking for
// cancellation every CancelCheckEvery iterations. iterations must be in
// [0, MaxComputeIterations].
func (s *Service) RunComputeTask(iterations int64) (*future.Handle[int64], error) {
	if iterations < 0 {
		return nil, tferrors.NewValidationError("taskservice", "iterations", iterations, "cannot be negative")
	}
	if iterations > MaxComputeIterations {
		return nil, tferrors.NewValidationError("taskservice", "iterations", iterations, "sum would overflow int64").
			WithHint(fmt.Sprintf("use at most %d", MaxComputeIterations))
	}
	return manager.SubmitTo(s.m, manager.PoolHeavy, "", func(ctx context.Context) (int64, error) {
		return s.compute(ctx, iterations)
	})
}

// RunRegionRead takes the shared region for reading on the general pool and
// returns a snapshot of the event log. Readers run concurrently.
func (s *Service) RunRegionRead() (*future.Handle[[]string], error) {
	return manager.SubmitWithResult(s.m, func(ctx context.Context) ([]string, error) {
		var events []string
		err := s.state.Region.WithReadLock(ctx, func() error {
			s.logger.Info("reading with read lock")
			if err := tfcontext.Sleep(ctx, s.cfg.RegionDelay); err != nil {
				return tferrors.Interrupted(err)
			}
			events = s.state.Events.Snapshot()
			return nil
		})
		return events, err
	})
}

// RunRegionWrite takes the shared region exclusively on the general pool and
// appends event. It returns the event log length after the append.
func (s *Service) RunRegionWrite(event string) (*future.Handle[int], error) {
	if err := validation.ValidateNotEmpty("taskservice", "event", event); err != nil {
		return nil, err
	}
	return manager.SubmitWithResult(s.m, func(ctx context.Context) (int, error) {
		var n int
		err := s.state.Region.WithWriteLock(ctx, func() error {
			s.logger.Info("writing with write lock", zap.String("event", event))
			if err := tfcontext.Sleep(ctx, s.cfg.RegionDelay); err != nil {
				return tferrors.Interrupted(err)
			}
			s.state.Events.Append(event)
			n = s.state.Events.Len()
			return nil
		})
		return n, err
	})
}

// RunSync runs the latency body on the caller's goroutine.
func (s *Service) RunSync(ctx context.Context, name string) error {
	if err := validation.ValidateNotEmpty("taskservice", "taskName", name); err != nil {
		return err
	}
	_, err := s.latency(ctx, name, s.cfg.SyncDelay)
	return err
}

func (s *Service) latency(ctx context.Context, name string, delay time.Duration) (string, error) {
	s.logger.Info("starting task", zap.String("task", name))

	if err := tfcontext.Sleep(ctx, delay); err != nil {
		s.logger.Warn("task interrupted", zap.String("task", name), zap.Error(err))
		return "", fmt.Errorf("task %s: %w", name, tferrors.Interrupted(err))
	}

	result := "Task " + name + " completed"
	s.state.Events.Append(result)
	s.state.Counter.Increment()
	s.logger.Info("completed task", zap.String("task", name))
	return result, nil
}

func (s *Service) compute(ctx context.Context, iterations int64) (int64, error) {
	s.logger.Info("starting heavy task", zap.Int64("iterations", iterations))
	start := time.Now()

	var sum int64
	for i := int64(0); i < iterations; i++ {
		if i%s.cfg.CancelCheckEvery == 0 && ctx.Err() != nil {
			return 0, fmt.Errorf("heavy task after %d iterations: %w", i, tferrors.Interrupted(ctx.Err()))
		}
		sum += i
	}

	s.logger.Info("completed heavy task",
		zap.Int64("iterations", iterations),
		zap.Duration("elapsed", time.Since(start)))
	return sum, nil
}
