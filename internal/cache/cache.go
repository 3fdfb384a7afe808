// SPDX-License-Identifier: MIT

// Package cache holds short-lived response bodies keyed by request, with TTL.
package cache

import (
	"sync"
	"time"

	"github.com/ManuGH/placecore/internal/clock"
)

// Cache provides thread-safe caching with expiration support.
type Cache interface {
	// Get returns the cached bytes. Expired entries are misses.
	Get(key string) ([]byte, bool)
	// Set stores value for ttl.
	Set(key string, value []byte, ttl time.Duration)
	// Delete removes a value.
	Delete(key string)
	// Clear removes all values.
	Clear()
	// Stats returns cache statistics.
	Stats() CacheStats
	// Close releases background resources.
	Close() error
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	CurrentSize int   `json:"currentSize"`
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) expiredAt(now time.Time) bool {
	return now.After(e.expiration)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   CacheStats
	clock   clock.Clock
	janitor *janitor
}

// MemoryOption configures a memory cache.
type MemoryOption func(*memoryCache)

// WithClock replaces the wall clock used for expiry.
func WithClock(c clock.Clock) MemoryOption {
	return func(m *memoryCache) { m.clock = c }
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a janitor that drops expired entries; Close stops it.
func NewMemoryCache(cleanupInterval time.Duration, opts ...MemoryOption) Cache {
	c := &memoryCache{
		entries: make(map[string]*entry),
		clock:   clock.Real{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
			done:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.expiredAt(c.clock.Now()) {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return append([]byte(nil), e.value...), true
}

func (c *memoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		value:      append([]byte(nil), value...),
		expiration: c.clock.Now().Add(ttl),
	}
	c.stats.Sets++
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// deleteExpired removes expired entries and returns how many were dropped.
func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	count := 0
	for key, e := range c.entries {
		if e.expiredAt(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

func (c *memoryCache) Close() error {
	if c.janitor != nil {
		c.janitor.shutdown()
	}
	return nil
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (j *janitor) run(c *memoryCache) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

func (j *janitor) shutdown() {
	j.once.Do(func() { close(j.stop) })
	<-j.done
}

type noOpCache struct{}

// NewNoOpCache returns a cache that stores nothing.
func NewNoOpCache() Cache {
	return noOpCache{}
}

func (noOpCache) Get(string) ([]byte, bool)          { return nil, false }
func (noOpCache) Set(string, []byte, time.Duration) {}
func (noOpCache) Delete(string)                      {}
func (noOpCache) Clear()                             {}
func (noOpCache) Stats() CacheStats                  { return CacheStats{} }
func (noOpCache) Close() error                       { return nil }
