package engine

import (
	"container/list"
	"sync"
	"time"

	"github.com/quotaflow/quotaflow/internal/core"
)

// DefaultCacheCapacity bounds the response cache when no capacity is set.
const DefaultCacheCapacity = 500

// Cache is a capacity-bounded response cache with per-entry TTL and
// least-recently-used eviction. Entries past their TTL are never returned
// as hits even while still physically present.
type Cache struct {
	Capacity int
	Clock    func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key       string
	value     *core.Response
	storedAt  time.Time
	expiresAt time.Time
}

// Get returns the cached response for key if present and still fresh.
func (c *Cache) Get(key string) (*core.Response, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.value, true
}

// Set stores a response under key with the given TTL, evicting the least
// recently used entry if the cache is at capacity.
func (c *Cache) Set(key string, value *core.Response, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[string]*list.Element)
		c.order = list.New()
	}

	now := c.now()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.storedAt = now
		entry.expiresAt = now.Add(ttl)
		c.order.MoveToFront(elem)
		return
	}

	capacity := c.Capacity
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	for len(c.entries) >= capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:       key,
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	})
}

// Len returns the number of physically present entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats reports occupancy and hit rate.
func (c *Cache) Stats() core.CacheStats {
	if c == nil {
		return core.CacheStats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := c.Capacity
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}

	stats := core.CacheStats{
		Size:    len(c.entries),
		MaxSize: capacity,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Clear drops all entries. Hit counters are preserved.
func (c *Cache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.order = nil
}

func (c *Cache) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
