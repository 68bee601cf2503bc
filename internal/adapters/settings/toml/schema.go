package toml

import (
	"fmt"
	"time"

	"github.com/bnema/jules-cli/internal/domain"
)

const currentSchemaVersion = 1

const (
	defaultBaseURL         = "https://jules.googleapis.com/v1alpha"
	defaultPollIntervalSec = 2
	defaultCacheTTLSec     = 3600
	defaultCacheSizeBytes  = 50 * 1024 * 1024
)

type fileSchema struct {
	Version int           `toml:"version"`
	API     apiSchema     `toml:"api"`
	Sync    syncSchema    `toml:"sync"`
	Cache   cacheSchema   `toml:"cache"`
	Storage storageSchema `toml:"storage"`
}

type apiSchema struct {
	BaseURL string `toml:"base_url"`
}

type syncSchema struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

type cacheSchema struct {
	Enabled        *bool `toml:"enabled"`
	TTLSeconds     int   `toml:"ttl_seconds"`
	SizeLimitBytes int64 `toml:"size_limit_bytes"`
}

type storageSchema struct {
	DataDir string `toml:"data_dir"`
}

func (f *fileSchema) applyDefaults() {
	if f.Version == 0 {
		f.Version = currentSchemaVersion
	}
	if f.API.BaseURL == "" {
		f.API.BaseURL = defaultBaseURL
	}
	if f.Sync.PollIntervalSeconds <= 0 {
		f.Sync.PollIntervalSeconds = defaultPollIntervalSec
	}
	if f.Cache.Enabled == nil {
		enabled := true
		f.Cache.Enabled = &enabled
	}
	if f.Cache.TTLSeconds == 0 {
		f.Cache.TTLSeconds = defaultCacheTTLSec
	}
	if f.Cache.SizeLimitBytes == 0 {
		f.Cache.SizeLimitBytes = defaultCacheSizeBytes
	}
}

func (f fileSchema) validateVersion() error {
	if f.Version > currentSchemaVersion {
		return fmt.Errorf("settings file version %d is newer than supported version %d", f.Version, currentSchemaVersion)
	}
	return nil
}

// Settings is the decoded, defaulted application configuration.
type Settings struct {
	BaseURL      string
	PollInterval time.Duration
	Cache        domain.CacheConfig
	DataDir      string
}

func fromSchema(file fileSchema) Settings {
	enabled := true
	if file.Cache.Enabled != nil {
		enabled = *file.Cache.Enabled
	}
	return Settings{
		BaseURL:      file.API.BaseURL,
		PollInterval: time.Duration(file.Sync.PollIntervalSeconds) * time.Second,
		Cache: domain.CacheConfig{
			Enabled:        enabled,
			DefaultTTL:     time.Duration(file.Cache.TTLSeconds) * time.Second,
			SizeLimitBytes: file.Cache.SizeLimitBytes,
		},
		DataDir: file.Storage.DataDir,
	}
}

func toSchema(settings Settings) fileSchema {
	enabled := settings.Cache.Enabled
	return fileSchema{
		Version: currentSchemaVersion,
		API:     apiSchema{BaseURL: settings.BaseURL},
		Sync:    syncSchema{PollIntervalSeconds: int(settings.PollInterval / time.Second)},
		Cache: cacheSchema{
			Enabled:        &enabled,
			TTLSeconds:     int(settings.Cache.DefaultTTL / time.Second),
			SizeLimitBytes: settings.Cache.SizeLimitBytes,
		},
		Storage: storageSchema{DataDir: settings.DataDir},
	}
}
