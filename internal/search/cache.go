package search

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultCacheTTL      = 30 * time.Minute
	defaultCacheMaxSize  = 100
	cacheCleanupInterval = 5 * time.Minute
)

type cacheItem struct {
	content  string
	storedAt time.Time
}

// Cache holds formatted search results in memory. Expired items are swept
// opportunistically on access (at most once per cleanup interval) and the
// oldest item is evicted when the cache is full.
type Cache struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu          sync.Mutex
	items       map[string]cacheItem
	lastCleanup time.Time
}

// NewCache creates a search cache with the given TTL and size bound.
// Zero values select the defaults (30 minutes, 100 items).
func NewCache(ttl time.Duration, maxSize int) *Cache {
	return newCacheWithClock(ttl, maxSize, time.Now)
}

func newCacheWithClock(ttl time.Duration, maxSize int, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = defaultCacheMaxSize
	}
	return &Cache{
		ttl:         ttl,
		maxSize:     maxSize,
		now:         now,
		items:       make(map[string]cacheItem),
		lastCleanup: now(),
	}
}

// Get returns the cached content for the key, or "" and false on a miss.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maybeCleanup()

	item, ok := c.items[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(item.storedAt) > c.ttl {
		delete(c.items, key)
		return "", false
	}
	return item.content, true
}

// Set stores content for the key, evicting the oldest item when full.
func (c *Cache) Set(key, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maybeCleanup()

	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = cacheItem{
		content:  content,
		storedAt: c.now(),
	}
}

// Clear removes every cached item.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem)
}

func (c *Cache) maybeCleanup() {
	now := c.now()
	if now.Sub(c.lastCleanup) < cacheCleanupInterval {
		return
	}
	c.lastCleanup = now

	removed := 0
	for key, item := range c.items {
		if now.Sub(item.storedAt) > c.ttl {
			delete(c.items, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("search cache cleanup", "expired", removed)
	}
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = item.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
