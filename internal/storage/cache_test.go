package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_GetSet(t *testing.T) {
	cache := NewLRUCache[string, int](2, time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)

	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	cache.Set("c", 3)
	_, ok = cache.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Len())

	stats := cache.GetStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cache := NewLRUCache[string, string](10, time.Second)
	cache.now = func() time.Time { return now }

	cache.Set("k", "v")
	cache.Set("k2", "v2")
	now = now.Add(2 * time.Second)

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Len())
}

func TestLRUCache_UpdateDeleteClear(t *testing.T) {
	cache := NewLRUCache[int, string](3, 0)

	cache.Set(1, "one")
	cache.Set(1, "uno")
	v, _ := cache.Get(1)
	assert.Equal(t, "uno", v)

	cache.Set(2, "two")
	cache.Delete(1)
	_, ok := cache.Get(1)
	assert.False(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.CleanupExpired())
}
