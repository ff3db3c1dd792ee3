package storage

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRUCache is a thread-safe LRU cache with TTL support
type LRUCache[K comparable, V any] struct {
	mu           sync.Mutex
	capacity     int
	ttl          time.Duration
	items        map[K]*list.Element
	evictionList *list.List
	now          func() time.Time

	hits   uint64
	misses uint64
}

// NewLRUCache creates a new LRU cache
func NewLRUCache[K comparable, V any](capacity int, ttl time.Duration) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache[K, V]{
		capacity:     capacity,
		ttl:          ttl,
		items:        make(map[K]*list.Element, capacity),
		evictionList: list.New(),
		now:          time.Now,
	}
}

// Get retrieves an item from the cache
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, found := c.items[key]
	if !found {
		c.misses++
		return zero, false
	}

	entry := elem.Value.(*cacheEntry[K, V])
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return zero, false
	}

	c.evictionList.MoveToFront(elem)
	c.hits++
	return entry.value, true
}

// Set adds or updates an item in the cache
func (c *LRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, found := c.items[key]; found {
		c.evictionList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry[K, V])
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	elem := c.evictionList.PushFront(&cacheEntry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem

	if c.evictionList.Len() > c.capacity {
		c.removeOldest()
	}
}

// Delete removes an item from the cache
func (c *LRUCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[key]; found {
		c.removeElement(elem)
	}
}

// Clear removes all items from the cache
func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element, c.capacity)
	c.evictionList.Init()
}

// Len returns the current number of items in the cache
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictionList.Len()
}

func (c *LRUCache[K, V]) removeOldest() {
	if elem := c.evictionList.Back(); elem != nil {
		c.removeElement(elem)
	}
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.evictionList.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry[K, V]).key)
}

// CleanupExpired removes all expired items (should be called periodically)
func (c *LRUCache[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return 0
	}

	now := c.now()
	removed := 0

	var next *list.Element
	for elem := c.evictionList.Back(); elem != nil; elem = next {
		next = elem.Prev()
		if now.After(elem.Value.(*cacheEntry[K, V]).expiresAt) {
			c.removeElement(elem)
			removed++
		}
	}

	return removed
}

// CacheStats is a snapshot of cache usage
type CacheStats struct {
	Capacity int
	Size     int
	TTL      time.Duration
	Hits     uint64
	Misses   uint64
}

// GetStats returns current cache statistics
func (c *LRUCache[K, V]) GetStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Capacity: c.capacity,
		Size:     c.evictionList.Len(),
		TTL:      c.ttl,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}
