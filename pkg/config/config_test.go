package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Pools.GeneralWorkers)
	assert.Equal(t, 10*time.Millisecond, cfg.Pools.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Tasks.LatencyDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Tasks.RegionDelay)
	assert.Equal(t, 100, cfg.State.QueueCapacity)
	assert.Equal(t, 5*time.Second, cfg.State.OfferTimeout)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "*/30 * * * * *", cfg.Jobs.QueueSweepCron)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskflow.yaml")
	content := `
server:
  addr: ":9090"
  drain_timeout: 3s
pools:
  general_workers: 2
  heavy_workers: 1
tasks:
  latency_delay: 250ms
cache:
  backend: redis
  redis_addr: "redis:6379"
  ttl: 1h
log:
  level: debug
  encoding: console
jobs:
  heartbeat_interval: 0s
  queue_sweep_cron: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.DrainTimeout)
	assert.Equal(t, 2, cfg.Pools.GeneralWorkers)
	assert.Equal(t, 1, cfg.Pools.HeavyWorkers)
	assert.Equal(t, 1000, cfg.Pools.GeneralQueue, "unset keys keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Tasks.LatencyDelay)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Duration(0), cfg.Jobs.HeartbeatInterval)
	assert.Empty(t, cfg.Jobs.QueueSweepCron)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKFLOW_SERVER_ADDR", ":7070")
	t.Setenv("TASKFLOW_POOLS_GENERAL_WORKERS", "3")
	t.Setenv("TASKFLOW_TASKS_LATENCY_DELAY", "5ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Pools.GeneralWorkers)
	assert.Equal(t, 5*time.Millisecond, cfg.Tasks.LatencyDelay)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero workers", func(c *Config) { c.Pools.GeneralWorkers = 0 }},
		{"negative latency", func(c *Config) { c.Tasks.LatencyDelay = -time.Second }},
		{"negative region delay", func(c *Config) { c.Tasks.RegionDelay = -time.Second }},
		{"zero queue capacity", func(c *Config) { c.State.QueueCapacity = 0 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheRedis; c.Cache.RedisAddr = "" }},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"bad cron", func(c *Config) { c.Jobs.QueueSweepCron = "every now and then" }},
		{"negative heartbeat", func(c *Config) { c.Jobs.HeartbeatInterval = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, tferrors.IsValidationError(err), "got %v", err)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
