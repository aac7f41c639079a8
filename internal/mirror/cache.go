package mirror

import (
	"sync"
	"time"
)

// entry wraps a resolved URL with expiry and insertion order tracking.
// An empty URL records a negative result (no mirror serves the path).
type entry struct {
	url       string
	expiry    time.Time
	insertIdx int64
}

// ResolveCache caches probe results per relative path so a run resolves
// each artifact at most once. Keys are relative artifact paths.
// Thread-safe with sync.RWMutex.
type ResolveCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
}

// NewCache creates a new ResolveCache with the given TTL and max entry count.
func NewCache(ttl time.Duration, maxEntries int) *ResolveCache {
	return &ResolveCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns a cached resolution if found and not expired. An empty URL
// with ok=true means the path was recently probed and found unavailable.
func (c *ResolveCache) Get(rel string) (string, bool) {
	c.mu.RLock()
	e, ok := c.items[rel]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if time.Now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[rel]; ok2 && time.Now().After(e2.expiry) {
			delete(c.items, rel)
		}
		c.mu.Unlock()
		return "", false
	}

	return e.url, true
}

// Set stores a resolution. Evicts the oldest entry if at capacity.
func (c *ResolveCache) Set(rel, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		url:       url,
		expiry:    time.Now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	// If key already exists, update in place (no capacity change)
	if _, exists := c.items[rel]; exists {
		c.items[rel] = e
		return
	}

	// Evict oldest if at capacity
	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[rel] = e
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *ResolveCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
