package services

import (
	"strings"
	"sync"
	"time"
)

// CacheEntry is one cached value and its deadline.
type CacheEntry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a small in-process TTL cache for catalog reads.
//
// Every Invalidate bumps a generation counter. Readers take the generation
// before querying the database and pass it to Set, which drops the value when
// an invalidation happened in between.
type Cache struct {
	entries    map[string]*CacheEntry
	generation uint64
	disabled   bool
	mutex      sync.RWMutex
	now        func() time.Time
	stop       chan struct{}
	once       sync.Once
}

// NewCache starts a cache that sweeps expired entries every interval.
func NewCache(interval time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]*CacheEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go c.cleanup(interval)

	return c
}

// newDisabledCache returns a cache that never stores anything.
func newDisabledCache() *Cache {
	return &Cache{
		entries:  make(map[string]*CacheEntry),
		disabled: true,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (c *Cache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

// Close stops the sweeper.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Generation returns the current invalidation generation.
func (c *Cache) Generation() uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.generation
}

// Set stores data read at generation. It reports false, and stores nothing,
// when the cache was invalidated since.
func (c *Cache) Set(key string, data interface{}, duration time.Duration, generation uint64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.disabled || generation != c.generation {
		return false
	}
	c.entries[key] = &CacheEntry{
		Data:      data,
		ExpiresAt: c.now().Add(duration),
	}
	return true
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.ExpiresAt) {
		return nil, false
	}

	return entry.Data, true
}

// Invalidate drops every key starting with prefix.
func (c *Cache) Invalidate(prefix string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.generation++
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// size reports the number of stored entries, expired or not.
func (c *Cache) size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}
