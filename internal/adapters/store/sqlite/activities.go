package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bnema/jules-cli/internal/domain"
)

// ListActivities returns a session's activities in arrival order.
func (s *Store) ListActivities(ctx context.Context, sessionName string) ([]domain.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT json_blob FROM activities WHERE session_name = ? ORDER BY rowid", sessionName)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		var activity domain.Activity
		if err := json.Unmarshal([]byte(blob), &activity); err != nil {
			return nil, fmt.Errorf("decode activity blob: %w", err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return activities, nil
}

// LatestActivityTime returns the newest stored createTime for the
// session, or the empty string when nothing is stored yet.
func (s *Store) LatestActivityTime(ctx context.Context, sessionName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var latest sql.NullString
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT MAX(create_time) FROM activities WHERE session_name = ?", sessionName).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest activity time: %w", err)
	}
	if !latest.Valid {
		return "", nil
	}
	return latest.String, nil
}

// AppendActivities stores activities the session does not already hold,
// keyed by activity name, and reports how many were new.
func (s *Store) AppendActivities(ctx context.Context, sessionName string, activities []domain.Activity) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(activities) == 0 {
		return 0, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append activities: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	appended := 0
	for _, activity := range activities {
		blob, err := json.Marshal(activity)
		if err != nil {
			return 0, fmt.Errorf("encode activity %q: %w", activity.Name, err)
		}
		res, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO activities (name, session_name, json_blob, create_time) VALUES (?, ?, ?, ?)",
			activity.Name, sessionName, string(blob), activity.CreateTime,
		)
		if err != nil {
			return 0, fmt.Errorf("insert activity %q: %w", activity.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("count inserted activity %q: %w", activity.Name, err)
		}
		appended += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append activities: %w", err)
	}

	if appended > 0 {
		s.hub.publish(topicActivities(sessionName))
	}
	return appended, nil
}

func (s *Store) DeleteActivities(ctx context.Context, sessionName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM activities WHERE session_name = ?", sessionName); err != nil {
		return fmt.Errorf("delete activities for %q: %w", sessionName, err)
	}

	s.hub.publish(topicActivities(sessionName))
	return nil
}

func (s *Store) SubscribeActivities(ctx context.Context, sessionName string) (<-chan []domain.Activity, error) {
	topic := topicActivities(sessionName)
	id, signal := s.hub.subscribe(topic)

	current, err := s.ListActivities(ctx, sessionName)
	if err != nil {
		s.hub.unsubscribe(topic, id)
		return nil, err
	}

	out := make(chan []domain.Activity, 1)
	out <- current

	go func() {
		defer s.hub.unsubscribe(topic, id)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				list, err := s.ListActivities(ctx, sessionName)
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
