package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/jules-cli/internal/domain"
)

func (s *Store) GetSession(ctx context.Context, name string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	var blob string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT json_blob FROM sessions WHERE name = ?", name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("query session %q: %w", name, err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(blob), &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session blob: %w", err)
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT json_blob FROM sessions ORDER BY update_time DESC, name")
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(blob), &session); err != nil {
			return nil, fmt.Errorf("decode session blob: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	return sessions, nil
}

func (s *Store) PutSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", session.Name, err)
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (name, json_blob, update_time) VALUES (?, ?, ?)",
		session.Name, string(blob), session.UpdateTime,
	); err != nil {
		return fmt.Errorf("upsert session %q: %w", session.Name, err)
	}

	s.hub.publish(topicSessions)
	return nil
}

// ReplaceAllSessions swaps the full session set in one transaction.
func (s *Store) ReplaceAllSessions(ctx context.Context, sessions []domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace sessions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	for _, session := range sessions {
		blob, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session %q: %w", session.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO sessions (name, json_blob, update_time) VALUES (?, ?, ?)",
			session.Name, string(blob), session.UpdateTime,
		); err != nil {
			return fmt.Errorf("insert session %q: %w", session.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace sessions: %w", err)
	}

	s.hub.publish(topicSessions)
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM sessions WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}

	s.hub.publish(topicSessions)
	return nil
}

func (s *Store) SubscribeSessions(ctx context.Context) (<-chan []domain.Session, error) {
	id, signal := s.hub.subscribe(topicSessions)

	current, err := s.ListSessions(ctx)
	if err != nil {
		s.hub.unsubscribe(topicSessions, id)
		return nil, err
	}

	out := make(chan []domain.Session, 1)
	out <- current

	go func() {
		defer s.hub.unsubscribe(topicSessions, id)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				list, err := s.ListSessions(ctx)
				if err != nil {
					continue
				}
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
