package github

import (
	"sync"
	"time"
)

// cache is an in-memory TTL cache for lookups repeated within one invocation.
type cache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	duration time.Duration
	now      func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

func newCache(duration time.Duration) *cache {
	return &cache{
		entries:  make(map[string]cacheEntry),
		duration: duration,
		now:      time.Now,
	}
}

func (c *cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (c *cache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.duration),
	}
}
