package memory

import (
	"sort"
	"sync"
	"time"
)

type cacheEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

// Cache is a TTL string cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache returns an empty cache using the wall clock.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

// NewCacheWithClock returns an empty cache that reads time from now.
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: now}
}

// Get returns the value for key when present and not expired. Expired
// entries are evicted.
func (c *Cache) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Put stores value under key for ttl.
func (c *Cache) Put(key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Each calls fn for every unexpired entry in key order. A zero expires
// means the entry never expires.
func (c *Cache) Each(fn func(key, value string, expires time.Time)) {
	c.mu.Lock()
	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if e.expires.IsZero() || now.Before(e.expires) {
			keys = append(keys, k)
		}
	}
	entries := make([]cacheEntry, len(keys))
	sort.Strings(keys)
	for i, k := range keys {
		entries[i] = c.entries[k]
	}
	c.mu.Unlock()

	for i, k := range keys {
		fn(k, entries[i].value, entries[i].expires)
	}
}

// Restore stores an entry with an absolute expiry. Entries that have
// already expired are ignored.
func (c *Cache) Restore(key, value string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !expires.IsZero() && !c.now().Before(expires) {
		return
	}
	c.entries[key] = cacheEntry{value: value, expires: expires}
}
