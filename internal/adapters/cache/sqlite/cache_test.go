package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/jules-cli/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestCache(t *testing.T, config domain.CacheConfig, clock *fakeClock) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"), config, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestGetMissThenHit(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "sessions_all")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "sessions_all", `[{"name":"sessions/a"}]`, time.Hour))

	value, ok, err := cache.Get(ctx, "sessions_all")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"name":"sessions/a"}]`, value)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
}

func TestExpiredEntryMisses(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "session_abc", "payload", time.Minute))

	clock.Advance(time.Minute + time.Second)

	_, ok, err := cache.Get(ctx, "session_abc")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.Zero(t, stats.EntryCount)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "sources_all", "payload", 0))

	clock.Advance(1000 * time.Hour)

	_, ok, err := cache.Get(ctx, "sources_all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetOverwritesExisting(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "old", time.Hour))
	require.NoError(t, cache.Set(ctx, "k", "new", time.Hour))

	value, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", value)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EntryCount)
	assert.Equal(t, int64(3), stats.TotalSizeBytes)
}

func TestLRUEviction(t *testing.T) {
	clock := newFakeClock()
	config := domain.CacheConfig{Enabled: true, DefaultTTL: time.Hour, SizeLimitBytes: 10}
	cache := openTestCache(t, config, clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "aaaa", time.Hour)) // 4 bytes
	clock.Advance(time.Second)
	require.NoError(t, cache.Set(ctx, "b", "bbbb", time.Hour)) // 4 bytes

	// Touch "a" so "b" becomes least recently used.
	clock.Advance(time.Second)
	_, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(time.Second)
	require.NoError(t, cache.Set(ctx, "c", "cccc", time.Hour))

	_, ok, err = cache.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "least recently used entry should be evicted")

	_, ok, err = cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = cache.Get(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetRejectsOversizedValue(t *testing.T) {
	clock := newFakeClock()
	config := domain.CacheConfig{Enabled: true, SizeLimitBytes: 4}
	cache := openTestCache(t, config, clock)

	err := cache.Set(context.Background(), "k", "toolarge", time.Hour)
	require.Error(t, err)
}

func TestDisabledCacheIsInert(t *testing.T) {
	clock := newFakeClock()
	config := domain.CacheConfig{Enabled: false, DefaultTTL: time.Hour}
	cache := openTestCache(t, config, clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Disabled lookups leave the counters untouched.
	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.HitCount)
	assert.Zero(t, stats.MissCount)
	assert.Zero(t, stats.EntryCount)
}

func TestClearKeepsCounters(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))
	_, _, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	_, _, err = cache.Get(ctx, "missing")
	require.NoError(t, err)

	require.NoError(t, cache.Clear(ctx))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.EntryCount)
	assert.Zero(t, stats.TotalSizeBytes)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)

	require.NoError(t, cache.ResetStats(ctx))

	stats, err = cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.HitCount)
	assert.Zero(t, stats.MissCount)
}

func TestPruneRemovesExpiredOnly(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, cache.Set(ctx, "long", "v", time.Hour))

	clock.Advance(2 * time.Minute)
	require.NoError(t, cache.Prune(ctx))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EntryCount)
	assert.Equal(t, clock.Now().Unix(), stats.LastPrunedAt.Unix())

	_, ok, err := cache.Get(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteSingleKey(t *testing.T) {
	clock := newFakeClock()
	cache := openTestCache(t, domain.DefaultCacheConfig(), clock)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "v", time.Hour))
	require.NoError(t, cache.Set(ctx, "b", "v", time.Hour))
	require.NoError(t, cache.Delete(ctx, "a"))

	_, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCloseIsSafeTwice(t *testing.T) {
	clock := newFakeClock()
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"), domain.DefaultCacheConfig(), clock)
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
