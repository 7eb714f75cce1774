package gateway

import (
	"context"
	"fmt"

	"github.com/vnykmshr/taskflow/pkg/sharedstate"
)

// CacheBackend stores the string entries managed through /api/tasks/cache.
// rediscache.Cache satisfies it directly.
type CacheBackend interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
}

// MemoryCache adapts the in-process shared cache to CacheBackend.
type MemoryCache struct {
	cache *sharedstate.Cache
}

// NewMemoryCache wraps c.
func NewMemoryCache(c *sharedstate.Cache) *MemoryCache {
	return &MemoryCache{cache: c}
}

// Put stores value under key.
func (m *MemoryCache) Put(_ context.Context, key, value string) error {
	m.cache.Put(key, value)
	return nil
}

// Get returns the value under key, formatted as a string if another caller
// stored a different type.
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	if s, isString := v.(string); isString {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}
