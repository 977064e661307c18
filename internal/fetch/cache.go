package fetch

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache stores response bodies by key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte)
}

type cacheEntry struct {
	key       string
	data      []byte
	fetchedAt time.Time
}

// MemoryCache is a bounded TTL cache. When full it evicts the oldest
// inserted entry; reads do not refresh an entry's position.
type MemoryCache struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	ttl        time.Duration
	maxEntries int
	order      *list.List
	entries    map[string]*list.Element
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache. A nil clock uses the real clock; a
// non-positive maxEntries disables the size bound.
func NewMemoryCache(ttl time.Duration, maxEntries int, clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		clock:      clock,
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

// Get returns the cached body when present and younger than the TTL.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && c.clock.Since(entry.fetchedAt) >= c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

// Put stores data under key, replacing any previous value in place.
func (c *MemoryCache) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.data = data
		entry.fetchedAt = now
		return
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, data: data, fetchedAt: now})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
