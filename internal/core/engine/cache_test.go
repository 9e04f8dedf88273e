package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotaflow/quotaflow/internal/core"
)

func cacheValue(endpoint string) *core.Response {
	return &core.Response{Service: "market-data", Endpoint: endpoint, StatusCode: 200, Body: []byte(`{}`)}
}

func TestCacheTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	cache := &Cache{Capacity: 10, Clock: clock.Now}

	cache.Set("k", cacheValue("/quote"), time.Minute)

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, "/quote", got.Endpoint)

	// Stale entries are never returned, even while physically present.
	clock.Advance(time.Minute)
	_, ok = cache.Get("k")
	require.False(t, ok)
	require.Zero(t, cache.Len())
}

func TestCacheLRUEviction(t *testing.T) {
	clock := newFakeClock()
	cache := &Cache{Capacity: 3, Clock: clock.Now}

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("k%d", i), cacheValue("/e"), time.Hour)
	}

	// Touch k0 so k1 becomes the least recently used.
	_, ok := cache.Get("k0")
	require.True(t, ok)

	cache.Set("k3", cacheValue("/e"), time.Hour)
	require.Equal(t, 3, cache.Len())

	_, ok = cache.Get("k1")
	require.False(t, ok)
	_, ok = cache.Get("k0")
	require.True(t, ok)
	_, ok = cache.Get("k3")
	require.True(t, ok)
}

func TestCacheStats(t *testing.T) {
	clock := newFakeClock()
	cache := &Cache{Capacity: 5, Clock: clock.Now}

	cache.Set("k", cacheValue("/e"), time.Hour)

	_, _ = cache.Get("k")
	_, _ = cache.Get("k")
	_, _ = cache.Get("missing")

	stats := cache.Stats()
	require.Equal(t, 1, stats.Size)
	require.Equal(t, 5, stats.MaxSize)
	require.Equal(t, uint64(2), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
	require.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestCacheClear(t *testing.T) {
	cache := &Cache{Capacity: 5, Clock: newFakeClock().Now}

	cache.Set("k", cacheValue("/e"), time.Hour)
	cache.Clear()

	require.Zero(t, cache.Len())
	_, ok := cache.Get("k")
	require.False(t, ok)

	// Usable again after a clear.
	cache.Set("k2", cacheValue("/e"), time.Hour)
	_, ok = cache.Get("k2")
	require.True(t, ok)
}

func TestCacheOverwriteRefreshesTTL(t *testing.T) {
	clock := newFakeClock()
	cache := &Cache{Capacity: 5, Clock: clock.Now}

	cache.Set("k", cacheValue("/old"), time.Minute)
	clock.Advance(50 * time.Second)
	cache.Set("k", cacheValue("/new"), time.Minute)

	clock.Advance(30 * time.Second)
	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, "/new", got.Endpoint)
}
