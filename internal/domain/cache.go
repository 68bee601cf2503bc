package domain

import "time"

// CacheConfig controls the derived-payload cache. TTL <= 0 keeps
// entries forever; SizeLimitBytes <= 0 disables eviction.
type CacheConfig struct {
	Enabled        bool
	DefaultTTL     time.Duration
	SizeLimitBytes int64
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:        true,
		DefaultTTL:     time.Hour,
		SizeLimitBytes: 50 * 1024 * 1024,
	}
}

// CacheStats is a snapshot of the cache metadata singleton.
type CacheStats struct {
	TotalSizeBytes int64
	EntryCount     int64
	HitCount       int64
	MissCount      int64
	LastPrunedAt   time.Time
}

// HitRate is hits over total lookups, zero when nothing was looked up.
func (s CacheStats) HitRate() float64 {
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}
