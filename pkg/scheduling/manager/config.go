package manager

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// Pool names.
const (
	PoolGeneral   = "general"
	PoolHeavy     = "heavy"
	PoolScheduled = "scheduled"
)

// Config sizes the managed pools.
type Config struct {
	GeneralWorkers   int           `mapstructure:"general_workers"`
	GeneralQueue     int           `mapstructure:"general_queue"`
	HeavyWorkers     int           `mapstructure:"heavy_workers"`
	HeavyQueue       int           `mapstructure:"heavy_queue"`
	ScheduledWorkers int           `mapstructure:"scheduled_workers"`
	ScheduledQueue   int           `mapstructure:"scheduled_queue"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	ForceGrace       time.Duration `mapstructure:"force_grace"`

	// TaskTimeout bounds each task's run time. Zero means no limit.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// DefaultConfig returns the default pool sizing. The heavy pool gets one
// worker per CPU.
func DefaultConfig() Config {
	return Config{
		GeneralWorkers:   8,
		GeneralQueue:     1000,
		HeavyWorkers:     runtime.NumCPU(),
		HeavyQueue:       1000,
		ScheduledWorkers: 4,
		ScheduledQueue:   100,
		TickInterval:     10 * time.Millisecond,
		ForceGrace:       250 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"GeneralWorkers", c.GeneralWorkers},
		{"GeneralQueue", c.GeneralQueue},
		{"HeavyWorkers", c.HeavyWorkers},
		{"HeavyQueue", c.HeavyQueue},
		{"ScheduledWorkers", c.ScheduledWorkers},
		{"ScheduledQueue", c.ScheduledQueue},
	} {
		if err := validation.ValidatePositive("manager", f.name, f.value); err != nil {
			return err
		}
	}
	if err := validation.ValidatePositiveDuration("manager", "TickInterval", c.TickInterval); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration("manager", "ForceGrace", c.ForceGrace); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration("manager", "TaskTimeout", c.TaskTimeout)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics instruments every pool and the in-flight gauge.
func WithMetrics(reg *metrics.Registry) Option {
	return func(m *Manager) {
		m.metrics = reg
	}
}
