package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bnema/jules-cli/internal/domain"
)

const (
	defaultSourcePageSize   = 50
	defaultSessionPageSize  = 50
	defaultActivityPageSize = 50
)

type listSourcesResponse struct {
	Sources       []domain.Source `json:"sources"`
	NextPageToken string          `json:"nextPageToken"`
}

type listSessionsResponse struct {
	Sessions      []domain.Session `json:"sessions"`
	NextPageToken string           `json:"nextPageToken"`
}

type listActivitiesResponse struct {
	Activities    []domain.Activity `json:"activities"`
	NextPageToken string            `json:"nextPageToken"`
}

type createSessionRequest struct {
	Prompt              string                `json:"prompt"`
	SourceContext       sourceContext         `json:"sourceContext"`
	Title               string                `json:"title,omitempty"`
	RequirePlanApproval bool                  `json:"requirePlanApproval"`
	AutomationMode      domain.AutomationMode `json:"automationMode,omitempty"`
}

type sourceContext struct {
	Source            string             `json:"source"`
	GitHubRepoContext *gitHubRepoContext `json:"githubRepoContext,omitempty"`
}

type gitHubRepoContext struct {
	StartingBranch string `json:"startingBranch,omitempty"`
}

type updateSessionRequest struct {
	Title               *string `json:"title,omitempty"`
	RequirePlanApproval *bool   `json:"requirePlanApproval,omitempty"`
}

type sendMessageRequest struct {
	Prompt string `json:"prompt"`
}

type approvePlanRequest struct {
	PlanID string `json:"planId,omitempty"`
}

func (c *Client) ListSources(ctx context.Context, pageSize int, pageToken string) ([]domain.Source, string, error) {
	path := "sources" + pageQuery(pageSize, defaultSourcePageSize, pageToken)
	resp, err := request[listSourcesResponse](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("list sources: %w", err)
	}
	return resp.Sources, resp.NextPageToken, nil
}

func (c *Client) ListAllSources(ctx context.Context) ([]domain.Source, error) {
	return ListAll(ctx, func(ctx context.Context, pageToken string) ([]domain.Source, string, error) {
		return c.ListSources(ctx, defaultSourcePageSize, pageToken)
	})
}

func (c *Client) GetSource(ctx context.Context, name string) (domain.Source, error) {
	source, err := request[domain.Source](ctx, c, http.MethodGet, qualifySource(name), nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Source{}, fmt.Errorf("get source %q: %w", name, domain.ErrSourceNotFound)
		}
		return domain.Source{}, fmt.Errorf("get source: %w", err)
	}
	return source, nil
}

func (c *Client) ListSessions(ctx context.Context, pageSize int, pageToken string) ([]domain.Session, string, error) {
	path := "sessions" + pageQuery(pageSize, defaultSessionPageSize, pageToken)
	resp, err := request[listSessionsResponse](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("list sessions: %w", err)
	}
	return resp.Sessions, resp.NextPageToken, nil
}

func (c *Client) ListAllSessions(ctx context.Context) ([]domain.Session, error) {
	return ListAll(ctx, func(ctx context.Context, pageToken string) ([]domain.Session, string, error) {
		return c.ListSessions(ctx, defaultSessionPageSize, pageToken)
	})
}

func (c *Client) GetSession(ctx context.Context, name string) (domain.Session, error) {
	session, err := request[domain.Session](ctx, c, http.MethodGet, qualifySession(name), nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Session{}, fmt.Errorf("get session %q: %w", name, domain.ErrSessionNotFound)
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (c *Client) CreateSession(ctx context.Context, prompt, sourceName string, cfg domain.CreateSessionConfig) (domain.Session, error) {
	body := createSessionRequest{
		Prompt: prompt,
		SourceContext: sourceContext{
			Source: qualifySource(sourceName),
		},
		Title:               cfg.Title,
		RequirePlanApproval: cfg.RequirePlanApproval,
		AutomationMode:      cfg.AutomationMode,
	}
	if cfg.StartingBranch != "" {
		body.SourceContext.GitHubRepoContext = &gitHubRepoContext{StartingBranch: cfg.StartingBranch}
	}

	session, err := request[domain.Session](ctx, c, http.MethodPost, "sessions", body)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (c *Client) UpdateSession(ctx context.Context, name string, update domain.SessionUpdate) (domain.Session, error) {
	if update.Empty() {
		return domain.Session{}, &domain.ValidationError{Message: "invalid request: no fields to update"}
	}

	path := qualifySession(name) + "?updateMask=" + url.QueryEscape(strings.Join(update.Mask(), ","))
	body := updateSessionRequest{
		Title:               update.Title,
		RequirePlanApproval: update.RequirePlanApproval,
	}

	session, err := request[domain.Session](ctx, c, http.MethodPatch, path, body)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// DeleteSession removes the remote session. Deleting an already-gone
// session succeeds.
func (c *Client) DeleteSession(ctx context.Context, name string) error {
	err := requestEmpty(ctx, c, http.MethodDelete, qualifySession(name), nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (c *Client) ListActivities(ctx context.Context, sessionName string, pageSize int, pageToken string) ([]domain.Activity, string, error) {
	path := qualifySession(sessionName) + "/activities" + pageQuery(pageSize, defaultActivityPageSize, pageToken)
	resp, err := request[listActivitiesResponse](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("list activities: %w", err)
	}
	return resp.Activities, resp.NextPageToken, nil
}

func (c *Client) SendMessage(ctx context.Context, sessionName, prompt string) error {
	path := qualifySession(sessionName) + ":sendMessage"
	if err := requestEmpty(ctx, c, http.MethodPost, path, sendMessageRequest{Prompt: prompt}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Client) ApprovePlan(ctx context.Context, sessionName, planID string) error {
	path := qualifySession(sessionName) + ":approvePlan"
	if err := requestEmpty(ctx, c, http.MethodPost, path, approvePlanRequest{PlanID: planID}); err != nil {
		return fmt.Errorf("approve plan: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *domain.NotFoundError
	return errors.As(err, &notFound)
}

func pageQuery(pageSize, fallback int, pageToken string) string {
	if pageSize <= 0 {
		pageSize = fallback
	}
	values := url.Values{}
	values.Set("pageSize", strconv.Itoa(pageSize))
	if pageToken != "" {
		values.Set("pageToken", pageToken)
	}
	return "?" + values.Encode()
}

func qualifySession(name string) string {
	if strings.HasPrefix(name, "sessions/") {
		return name
	}
	return "sessions/" + name
}

func qualifySource(name string) string {
	if strings.HasPrefix(name, "sources/") {
		return name
	}
	return "sources/" + name
}
