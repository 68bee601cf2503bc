package ports

import (
	"context"
	"time"

	"github.com/bnema/jules-cli/internal/domain"
)

// Cache is a size- and time-bounded key/value store for derived
// payloads. A miss is an expected result, not an error; errors signal
// a storage fault and callers should fall back to the network.
type Cache interface {
	// Get returns the payload and true on a hit. Expired entries miss
	// even before the prune loop removes them.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. ttl <= 0 means the entry never
	// expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry. Hit and miss counters survive so a
	// clear does not erase accuracy history; ResetStats zeroes them.
	Clear(ctx context.Context) error
	ResetStats(ctx context.Context) error
	Stats(ctx context.Context) (domain.CacheStats, error)
}
