package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bnema/jules-cli/internal/domain"
)

func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT json_blob FROM sources ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]domain.Source, 0)
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		var source domain.Source
		if err := json.Unmarshal([]byte(blob), &source); err != nil {
			return nil, fmt.Errorf("decode source blob: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}

	return sources, nil
}

// ReplaceAllSources swaps the full source set in one transaction.
func (s *Store) ReplaceAllSources(ctx context.Context, sources []domain.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace sources: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sources"); err != nil {
		return fmt.Errorf("clear sources: %w", err)
	}
	for _, source := range sources {
		blob, err := json.Marshal(source)
		if err != nil {
			return fmt.Errorf("encode source %q: %w", source.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO sources (name, json_blob) VALUES (?, ?)",
			source.Name, string(blob),
		); err != nil {
			return fmt.Errorf("insert source %q: %w", source.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace sources: %w", err)
	}

	s.hub.publish(topicSources)
	return nil
}

func (s *Store) SubscribeSources(ctx context.Context) (<-chan []domain.Source, error) {
	id, signal := s.hub.subscribe(topicSources)

	current, err := s.ListSources(ctx)
	if err != nil {
		s.hub.unsubscribe(topicSources, id)
		return nil, err
	}

	out := make(chan []domain.Source, 1)
	out <- current

	go func() {
		defer s.hub.unsubscribe(topicSources, id)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				list, err := s.ListSources(ctx)
				if err != nil {
					continue
				}
				// Coalesce: drop an unconsumed stale value first.
				select {
				case <-out:
				default:
				}
				out <- list
			}
		}
	}()

	return out, nil
}
