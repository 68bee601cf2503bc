// Package sqlite persists entity snapshots (sources, sessions,
// activities) as JSON blobs keyed by entity name, and fans committed
// mutations out to subscribers.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bnema/jules-cli/internal/adapters/store/sqlite/migrations"
	"github.com/bnema/jules-cli/internal/ports"
	_ "modernc.org/sqlite"
)

// Store is the durable local mirror of the remote service.
type Store struct {
	sqlDB *sql.DB
	hub   *hub
}

var (
	_ ports.SourceStore   = (*Store)(nil)
	_ ports.SessionStore  = (*Store)(nil)
	_ ports.ActivityStore = (*Store)(nil)
)

// Open opens the entity database and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, hub: newHub()}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
