package sharedstate

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// Cache is a concurrent string-keyed map with last-write-wins semantics.
// Entries never expire.
type Cache struct {
	entries sync.Map
	size    atomic.Int64

	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewCache returns an empty cache.
func NewCache(opts ...Option) *Cache {
	o := buildOptions(opts)
	return &Cache{logger: o.logger, metrics: o.metrics}
}

// Put stores value under key, replacing any previous value atomically.
func (c *Cache) Put(key string, value any) {
	if _, loaded := c.entries.Swap(key, value); !loaded {
		c.size.Add(1)
	}
	c.record("put", "ok")
	c.logger.Debug("cache put", zap.String("key", key))
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.entries.Load(key)
	if ok {
		c.record("get", "hit")
	} else {
		c.record("get", "miss")
	}
	return v, ok
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	_, loaded := c.entries.LoadAndDelete(key)
	if loaded {
		c.size.Add(-1)
		c.record("delete", "hit")
	} else {
		c.record("delete", "miss")
	}
	return loaded
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

func (c *Cache) record(op, result string) {
	if c.metrics != nil {
		c.metrics.CacheOperations.WithLabelValues(op, result).Inc()
	}
}
