package ports

import (
	"context"

	"github.com/bnema/jules-cli/internal/domain"
)

// SourceStore holds the latest known snapshot of every source.
// Refreshes replace the full set atomically.
type SourceStore interface {
	ListSources(ctx context.Context) ([]domain.Source, error)
	ReplaceAllSources(ctx context.Context, sources []domain.Source) error
	// SubscribeSources delivers the current list immediately, then
	// again after every committed mutation, until ctx is done.
	SubscribeSources(ctx context.Context) (<-chan []domain.Source, error)
}

type SessionStore interface {
	GetSession(ctx context.Context, name string) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	PutSession(ctx context.Context, session domain.Session) error
	ReplaceAllSessions(ctx context.Context, sessions []domain.Session) error
	DeleteSession(ctx context.Context, name string) error
	SubscribeSessions(ctx context.Context) (<-chan []domain.Session, error)
}

// ActivityStore keeps the append-only activity log per session,
// deduplicated by activity name in arrival order.
type ActivityStore interface {
	ListActivities(ctx context.Context, sessionName string) ([]domain.Activity, error)
	// LatestActivityTime returns the createTime of the most recently
	// stored activity for the session, or "" when none exist. Used as
	// the incremental fetch cursor.
	LatestActivityTime(ctx context.Context, sessionName string) (string, error)
	// AppendActivities stores the genuinely new activities and reports
	// how many were appended; already-known names are skipped.
	AppendActivities(ctx context.Context, sessionName string, activities []domain.Activity) (int, error)
	DeleteActivities(ctx context.Context, sessionName string) error
	SubscribeActivities(ctx context.Context, sessionName string) (<-chan []domain.Activity, error)
}
