package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// Config holds configuration for a Redis-backed cache.
type Config struct {
	// Redis client; single node, sentinel and cluster clients all work
	Redis redis.UniversalClient

	// Prefix is prepended to every key
	Prefix string

	// TTL expires entries after the given duration. Zero keeps them forever.
	TTL time.Duration

	// Timeout bounds each Redis round trip (defaults to 500ms)
	Timeout time.Duration

	// Metrics records operations when set
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration without a client.
func DefaultConfig() Config {
	return Config{
		Prefix:  "taskflow:cache:",
		Timeout: 500 * time.Millisecond,
	}
}

// Cache stores string values in Redis.
type Cache struct {
	rdb     redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	metrics *metrics.Registry
}

// New creates a cache over cfg.Redis.
func New(cfg Config) (*Cache, error) {
	if cfg.Redis == nil {
		return nil, tferrors.NewValidationError("rediscache", "Redis", nil, "client is required")
	}
	if err := validation.ValidateNonNegativeDuration("rediscache", "TTL", cfg.TTL); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	return &Cache{
		rdb:     cfg.Redis,
		prefix:  cfg.Prefix,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		metrics: cfg.Metrics,
	}, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		c.record("put", "error")
		return tferrors.NewOperationError("rediscache", "put", err).WithContext("key=" + key)
	}
	c.record("put", "ok")
	return nil
}

// Get returns the value stored under key. A missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.rdb.Get(ctx, c.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		c.record("get", "miss")
		return "", false, nil
	case err != nil:
		c.record("get", "error")
		return "", false, tferrors.NewOperationError("rediscache", "get", err).WithContext("key=" + key)
	}
	c.record("get", "hit")
	return v, true, nil
}

// Delete removes key and reports whether it existed.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.rdb.Del(ctx, c.key(key)).Result()
	if err != nil {
		c.record("delete", "error")
		return false, tferrors.NewOperationError("rediscache", "delete", err).WithContext("key=" + key)
	}
	if n == 0 {
		c.record("delete", "miss")
	} else {
		c.record("delete", "hit")
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Cache) record(op, result string) {
	if c.metrics != nil {
		c.metrics.CacheOperations.WithLabelValues("redis_"+op, result).Inc()
	}
}
