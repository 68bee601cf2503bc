// Package sqlite implements the bounded payload cache on its own
// SQLite database, separate from the entity store so a cache wipe
// never touches durable state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/jules-cli/internal/domain"
	"github.com/bnema/jules-cli/internal/ports"
	_ "modernc.org/sqlite"
)

const pruneInterval = 60 * time.Second

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key              TEXT PRIMARY KEY,
    value            TEXT NOT NULL,
    size_bytes       INTEGER NOT NULL,
    created_at       INTEGER NOT NULL,
    expires_at       INTEGER,
    last_accessed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_lru ON cache_entries (last_accessed_at);

CREATE TABLE IF NOT EXISTS cache_metadata (
    id             INTEGER PRIMARY KEY CHECK (id = 1),
    hit_count      INTEGER NOT NULL DEFAULT 0,
    miss_count     INTEGER NOT NULL DEFAULT 0,
    last_pruned_at INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO cache_metadata (id) VALUES (1);
`

// Cache is a size- and time-bounded key/value store with LRU eviction.
// Mutations are serialized through a single mutex.
type Cache struct {
	mu     sync.Mutex
	sqlDB  *sql.DB
	config domain.CacheConfig
	clock  ports.Clock

	pruneStop chan struct{}
	pruneDone chan struct{}
}

var _ ports.Cache = (*Cache)(nil)

// Open opens (creating if needed) the cache database at path and
// starts the background prune loop when the cache is enabled.
func Open(path string, config domain.CacheConfig, clock ports.Clock) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping cache db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure cache schema: %w", err)
	}

	c := &Cache{
		sqlDB:  sqlDB,
		config: config,
		clock:  clock,
	}
	if config.Enabled {
		c.pruneStop = make(chan struct{})
		c.pruneDone = make(chan struct{})
		go c.pruneLoop()
	}
	return c, nil
}

// Close stops the prune loop and closes the database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	if c.pruneStop != nil {
		close(c.pruneStop)
		<-c.pruneDone
		c.pruneStop = nil
	}
	if c.sqlDB == nil {
		return nil
	}
	return c.sqlDB.Close()
}

// Get returns the payload and true on a hit. A disabled cache always
// misses and records nothing.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if !c.config.Enabled {
		return "", false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now().Unix()

	var value string
	var expiresAt sql.NullInt64
	err := c.sqlDB.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, c.recordMiss(ctx)
	}
	if err != nil {
		return "", false, fmt.Errorf("query cache entry %q: %w", key, err)
	}

	// An expired entry misses before the prune loop catches it.
	if expiresAt.Valid && expiresAt.Int64 <= now {
		if _, err := c.sqlDB.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			return "", false, fmt.Errorf("drop expired cache entry %q: %w", key, err)
		}
		return "", false, c.recordMiss(ctx)
	}

	if _, err := c.sqlDB.ExecContext(ctx,
		"UPDATE cache_entries SET last_accessed_at = ? WHERE key = ?", now, key); err != nil {
		return "", false, fmt.Errorf("touch cache entry %q: %w", key, err)
	}
	if _, err := c.sqlDB.ExecContext(ctx,
		"UPDATE cache_metadata SET hit_count = hit_count + 1 WHERE id = 1"); err != nil {
		return "", false, fmt.Errorf("record cache hit: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, evicting least recently used entries
// first when the write would exceed the size limit. A disabled cache
// ignores writes.
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.config.Enabled {
		return nil
	}

	size := int64(len(value))
	if c.config.SizeLimitBytes > 0 && size > c.config.SizeLimitBytes {
		return fmt.Errorf("cache entry %q (%d bytes) exceeds size limit %d", key, size, c.config.SizeLimitBytes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now().Unix()
	var expiresAt any
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl).Unix()
	}

	if err := c.evictForLocked(ctx, key, size); err != nil {
		return err
	}

	if _, err := c.sqlDB.ExecContext(ctx, `
INSERT INTO cache_entries (key, value, size_bytes, created_at, expires_at, last_accessed_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    size_bytes = excluded.size_bytes,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at,
    last_accessed_at = excluded.last_accessed_at
`, key, value, size, now, expiresAt, now); err != nil {
		return fmt.Errorf("store cache entry %q: %w", key, err)
	}
	return nil
}

// evictForLocked deletes LRU entries until the incoming write fits.
// The entry being replaced does not count against the budget.
func (c *Cache) evictForLocked(ctx context.Context, key string, incoming int64) error {
	if c.config.SizeLimitBytes <= 0 {
		return nil
	}

	var total int64
	if err := c.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries WHERE key != ?", key).Scan(&total); err != nil {
		return fmt.Errorf("sum cache size: %w", err)
	}

	for total+incoming > c.config.SizeLimitBytes {
		var victim string
		var victimSize int64
		err := c.sqlDB.QueryRowContext(ctx,
			"SELECT key, size_bytes FROM cache_entries WHERE key != ? ORDER BY last_accessed_at ASC, key ASC LIMIT 1",
			key).Scan(&victim, &victimSize)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pick eviction victim: %w", err)
		}
		if _, err := c.sqlDB.ExecContext(ctx,
			"DELETE FROM cache_entries WHERE key = ?", victim); err != nil {
			return fmt.Errorf("evict cache entry %q: %w", victim, err)
		}
		total -= victimSize
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sqlDB.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry. Hit and miss counters survive.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sqlDB.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}

func (c *Cache) ResetStats(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sqlDB.ExecContext(ctx,
		"UPDATE cache_metadata SET hit_count = 0, miss_count = 0 WHERE id = 1"); err != nil {
		return fmt.Errorf("reset cache stats: %w", err)
	}
	return nil
}

func (c *Cache) Stats(ctx context.Context) (domain.CacheStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.CacheStats{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var stats domain.CacheStats
	if err := c.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(size_bytes), 0), COUNT(1) FROM cache_entries").
		Scan(&stats.TotalSizeBytes, &stats.EntryCount); err != nil {
		return domain.CacheStats{}, fmt.Errorf("aggregate cache entries: %w", err)
	}

	var lastPruned int64
	if err := c.sqlDB.QueryRowContext(ctx,
		"SELECT hit_count, miss_count, last_pruned_at FROM cache_metadata WHERE id = 1").
		Scan(&stats.HitCount, &stats.MissCount, &lastPruned); err != nil {
		return domain.CacheStats{}, fmt.Errorf("read cache metadata: %w", err)
	}
	if lastPruned > 0 {
		stats.LastPrunedAt = time.Unix(lastPruned, 0).UTC()
	}
	return stats, nil
}

// Prune removes expired entries and stamps the prune time.
func (c *Cache) Prune(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now().Unix()
	if _, err := c.sqlDB.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= ?", now); err != nil {
		return fmt.Errorf("prune expired cache entries: %w", err)
	}
	if _, err := c.sqlDB.ExecContext(ctx,
		"UPDATE cache_metadata SET last_pruned_at = ? WHERE id = 1", now); err != nil {
		return fmt.Errorf("stamp prune time: %w", err)
	}
	return nil
}

func (c *Cache) recordMiss(ctx context.Context) error {
	if _, err := c.sqlDB.ExecContext(ctx,
		"UPDATE cache_metadata SET miss_count = miss_count + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("record cache miss: %w", err)
	}
	return nil
}

func (c *Cache) pruneLoop() {
	defer close(c.pruneDone)

	timer := time.NewTimer(pruneInterval)
	defer timer.Stop()
	for {
		select {
		case <-c.pruneStop:
			return
		case <-timer.C:
			_ = c.Prune(context.Background())
			timer.Reset(pruneInterval)
		}
	}
}
