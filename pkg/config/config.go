// Package config loads taskflowd configuration from defaults, an optional
// YAML file and TASKFLOW_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
	"github.com/vnykmshr/taskflow/pkg/taskservice"
)

// EnvPrefix prefixes environment overrides, e.g. TASKFLOW_SERVER_ADDR.
const EnvPrefix = "TASKFLOW"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete daemon configuration.
type Config struct {
	Server  ServerConfig       `mapstructure:"server"`
	Pools   manager.Config     `mapstructure:"pools"`
	Tasks   taskservice.Config `mapstructure:"tasks"`
	State   sharedstate.Config `mapstructure:"state"`
	Cache   CacheConfig        `mapstructure:"cache"`
	Log     logger.Config      `mapstructure:"log"`
	Metrics MetricsConfig      `mapstructure:"metrics"`
	Jobs    JobsConfig         `mapstructure:"jobs"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DrainTimeout    time.Duration `mapstructure:"drain_timeout"`
}

// CacheConfig selects the gateway cache backend.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// JobsConfig configures the background jobs. A zero interval or empty cron
// expression disables the job.
type JobsConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	QueueSweepCron    string        `mapstructure:"queue_sweep_cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			DrainTimeout:    30 * time.Second,
		},
		Pools: manager.DefaultConfig(),
		Tasks: taskservice.DefaultConfig(),
		State: sharedstate.DefaultConfig(),
		Cache: CacheConfig{
			Backend:   CacheMemory,
			RedisAddr: "localhost:6379",
			Prefix:    "taskflow:cache:",
		},
		Log: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Jobs: JobsConfig{
			HeartbeatInterval: time.Minute,
			QueueSweepCron:    "*/30 * * * * *",
		},
	}
}

// setDefaults registers every key so environment variables can override
// values that no file sets.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.drain_timeout", d.Server.DrainTimeout)

	v.SetDefault("pools.general_workers", d.Pools.GeneralWorkers)
	v.SetDefault("pools.general_queue", d.Pools.GeneralQueue)
	v.SetDefault("pools.heavy_workers", d.Pools.HeavyWorkers)
	v.SetDefault("pools.heavy_queue", d.Pools.HeavyQueue)
	v.SetDefault("pools.scheduled_workers", d.Pools.ScheduledWorkers)
	v.SetDefault("pools.scheduled_queue", d.Pools.ScheduledQueue)
	v.SetDefault("pools.tick_interval", d.Pools.TickInterval)
	v.SetDefault("pools.force_grace", d.Pools.ForceGrace)
	v.SetDefault("pools.task_timeout", d.Pools.TaskTimeout)

	v.SetDefault("tasks.latency_delay", d.Tasks.LatencyDelay)
	v.SetDefault("tasks.sync_delay", d.Tasks.SyncDelay)
	v.SetDefault("tasks.region_delay", d.Tasks.RegionDelay)
	v.SetDefault("tasks.cancel_check_every", d.Tasks.CancelCheckEvery)

	v.SetDefault("state.queue_capacity", d.State.QueueCapacity)
	v.SetDefault("state.offer_timeout", d.State.OfferTimeout)
	v.SetDefault("state.max_readers", d.State.MaxReaders)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.output_paths", d.Log.OutputPaths)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("jobs.heartbeat_interval", d.Jobs.HeartbeatInterval)
	v.SetDefault("jobs.queue_sweep_cron", d.Jobs.QueueSweepCron)
}

// New returns a viper instance preloaded with defaults and environment
// bindings. Callers may bind command-line flags to it before calling Decode.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) on top of the defaults and environment and
// returns the validated configuration.
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// ReadFile merges the YAML file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Decode unmarshals v and validates the result.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validation.ValidateNotEmpty("config", "server.addr", c.Server.Addr); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration("config", "server.drain_timeout", c.Server.DrainTimeout); err != nil {
		return err
	}
	if err := c.Pools.Validate(); err != nil {
		return err
	}
	if err := c.Tasks.Validate(); err != nil {
		return err
	}
	if err := c.State.Validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if err := validation.ValidateNotEmpty("config", "cache.redis_addr", c.Cache.RedisAddr); err != nil {
			return err
		}
	default:
		return tferrors.NewValidationError("config", "cache.backend", c.Cache.Backend, "unknown backend").
			WithHint("use memory or redis")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return tferrors.NewValidationError("config", "metrics.path", c.Metrics.Path, "must start with /")
	}

	if err := validation.ValidateNonNegativeDuration("config", "jobs.heartbeat_interval", c.Jobs.HeartbeatInterval); err != nil {
		return err
	}
	if c.Jobs.QueueSweepCron != "" {
		if _, err := scheduler.ParseCron(c.Jobs.QueueSweepCron); err != nil {
			return tferrors.NewValidationError("config", "jobs.queue_sweep_cron", c.Jobs.QueueSweepCron, err.Error())
		}
	}
	return nil
}
