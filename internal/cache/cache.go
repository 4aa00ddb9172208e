package cache

import (
	"sync"
	"time"
)

// TTLFast bounds how long block device tables are reused. The resolver also
// clears them at the start of every cycle.
const TTLFast = 5 * time.Second

// Entry holds a cached value with expiration
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// expired reports whether the entry is stale at t
func (e *Entry[V]) expired(t time.Time) bool {
	return !t.Before(e.ExpiresAt)
}

// Cache provides thread-safe TTL-based caching
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[V]
	now     func() time.Time
}

// New creates a new cache instance
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*Entry[V]),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get retrieves a value from cache; ok is false if expired or not found
func (c *Cache[V]) Get(key string) (v V, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found || entry.expired(c.now()) {
		return v, false
	}
	return entry.Value, true
}

// Set stores a value with the given TTL
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry[V]{
		Value:     value,
		ExpiresAt: c.now().Add(ttl),
	}
}

// GetOrLoad returns the cached value or calls load and caches its result for
// ttl. Load errors are returned and nothing is cached.
func (c *Cache[V]) GetOrLoad(key string, ttl time.Duration, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Clear removes all entries from cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry[V])
}
