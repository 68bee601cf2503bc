package ports

import (
	"context"

	"github.com/bnema/jules-cli/internal/domain"
)

// RemoteAPI is the authenticated surface of the remote agent service.
// Single-page list calls return the next page token alongside the
// items; an empty token means the listing is exhausted.
type RemoteAPI interface {
	ListSources(ctx context.Context, pageSize int, pageToken string) ([]domain.Source, string, error)
	ListAllSources(ctx context.Context) ([]domain.Source, error)
	GetSource(ctx context.Context, name string) (domain.Source, error)

	ListSessions(ctx context.Context, pageSize int, pageToken string) ([]domain.Session, string, error)
	ListAllSessions(ctx context.Context) ([]domain.Session, error)
	GetSession(ctx context.Context, name string) (domain.Session, error)
	CreateSession(ctx context.Context, prompt, sourceName string, cfg domain.CreateSessionConfig) (domain.Session, error)
	UpdateSession(ctx context.Context, name string, update domain.SessionUpdate) (domain.Session, error)
	DeleteSession(ctx context.Context, name string) error

	ListActivities(ctx context.Context, sessionName string, pageSize int, pageToken string) ([]domain.Activity, string, error)
	SendMessage(ctx context.Context, sessionName, prompt string) error
	ApprovePlan(ctx context.Context, sessionName, planID string) error
}
