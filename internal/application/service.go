// Package application coordinates the remote API, the local entity
// store, and the payload cache, and runs the polling engine that keeps
// active sessions fresh.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bnema/jules-cli/internal/domain"
	"github.com/bnema/jules-cli/internal/ports"
)

const (
	cacheKeySources  = "sources_all"
	cacheKeySessions = "sessions_all"
)

func cacheKeySession(name string) string {
	return "session_" + domain.Session{Name: name}.ID()
}

func cacheKeyActivities(sessionName string) string {
	return "activities_" + domain.Session{Name: sessionName}.ID()
}

// Service is the repository facade: reads go cache first, then the
// local store, then the network; writes go network first, then the
// local mirror. Cache faults degrade to the next layer, never fail the
// call.
type Service struct {
	api        ports.RemoteAPI
	sources    ports.SourceStore
	sessions   ports.SessionStore
	activities ports.ActivityStore
	cache      ports.Cache
	clock      ports.Clock
	cacheTTL   time.Duration
	logger     *log.Logger
}

type ServiceConfig struct {
	API           ports.RemoteAPI
	SourceStore   ports.SourceStore
	SessionStore  ports.SessionStore
	ActivityStore ports.ActivityStore
	Cache         ports.Cache
	Clock         ports.Clock
	CacheTTL      time.Duration
	Logger        *log.Logger
}

func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	return &Service{
		api:        cfg.API,
		sources:    cfg.SourceStore,
		sessions:   cfg.SessionStore,
		activities: cfg.ActivityStore,
		cache:      cfg.Cache,
		clock:      clock,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// RefreshSources returns all sources, serving from cache unless
// forceNetwork is set. A network refresh replaces the stored set and
// repopulates the cache.
func (s *Service) RefreshSources(ctx context.Context, forceNetwork bool) ([]domain.Source, error) {
	if !forceNetwork {
		var cached []domain.Source
		if s.cacheGet(ctx, cacheKeySources, &cached) {
			return cached, nil
		}
	}

	sources, err := s.api.ListAllSources(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sources.ReplaceAllSources(ctx, sources); err != nil {
		return nil, fmt.Errorf("store sources: %w", err)
	}
	s.cacheSet(ctx, cacheKeySources, sources)
	return sources, nil
}

// RefreshSessions returns all sessions, serving from cache unless
// forceNetwork is set.
func (s *Service) RefreshSessions(ctx context.Context, forceNetwork bool) ([]domain.Session, error) {
	if !forceNetwork {
		var cached []domain.Session
		if s.cacheGet(ctx, cacheKeySessions, &cached) {
			return cached, nil
		}
	}

	sessions, err := s.api.ListAllSessions(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.ReplaceAllSessions(ctx, sessions); err != nil {
		return nil, fmt.Errorf("store sessions: %w", err)
	}
	s.cacheSet(ctx, cacheKeySessions, sessions)
	return sessions, nil
}

// GetSession reads through cache, then the local store, then the
// network. forceNetwork skips the first two layers.
func (s *Service) GetSession(ctx context.Context, name string, forceNetwork bool) (domain.Session, error) {
	key := cacheKeySession(name)

	if !forceNetwork {
		var cached domain.Session
		if s.cacheGet(ctx, key, &cached) {
			return cached, nil
		}

		stored, err := s.sessions.GetSession(ctx, name)
		if err == nil {
			s.cacheSet(ctx, key, stored)
			return stored, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, err
		}
	}

	session, err := s.api.GetSession(ctx, name)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	s.cacheSet(ctx, key, session)
	return session, nil
}

// CreateSession creates the remote session and mirrors it locally.
func (s *Service) CreateSession(ctx context.Context, prompt, sourceName string, cfg domain.CreateSessionConfig) (domain.Session, error) {
	session, err := s.api.CreateSession(ctx, prompt, sourceName, cfg)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	s.cacheDelete(ctx, cacheKeySessions)
	return session, nil
}

// UpdateSession patches the remote session and mirrors the response.
func (s *Service) UpdateSession(ctx context.Context, name string, update domain.SessionUpdate) (domain.Session, error) {
	session, err := s.api.UpdateSession(ctx, name, update)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	s.cacheDelete(ctx, cacheKeySessions)
	s.cacheSet(ctx, cacheKeySession(name), session)
	return session, nil
}

// DeleteSession removes the session remotely, then locally along with
// its activities and cached payloads.
func (s *Service) DeleteSession(ctx context.Context, name string) error {
	if err := s.api.DeleteSession(ctx, name); err != nil {
		return err
	}
	if err := s.activities.DeleteActivities(ctx, name); err != nil {
		return fmt.Errorf("delete local activities: %w", err)
	}
	if err := s.sessions.DeleteSession(ctx, name); err != nil {
		return fmt.Errorf("delete local session: %w", err)
	}
	s.cacheDelete(ctx, cacheKeySessions)
	s.cacheDelete(ctx, cacheKeySession(name))
	s.cacheDelete(ctx, cacheKeyActivities(name))
	return nil
}

// SendMessage posts a user message and immediately pulls any new
// activities so the local log shows the message without waiting a poll
// cycle.
func (s *Service) SendMessage(ctx context.Context, sessionName, prompt string) error {
	if err := s.api.SendMessage(ctx, sessionName, prompt); err != nil {
		return err
	}
	if _, err := s.FetchNewActivities(ctx, sessionName); err != nil {
		s.logger.Printf("application: post-send activity fetch failed: %v", err)
	}
	return nil
}

// ApprovePlan approves the pending plan, then pulls new activities.
func (s *Service) ApprovePlan(ctx context.Context, sessionName, planID string) error {
	if err := s.api.ApprovePlan(ctx, sessionName, planID); err != nil {
		return err
	}
	if _, err := s.FetchNewActivities(ctx, sessionName); err != nil {
		s.logger.Printf("application: post-approve activity fetch failed: %v", err)
	}
	return nil
}

// FetchNewActivities pulls activities newer than the stored cursor and
// appends them, reporting how many were genuinely new. Without a
// cursor only the first page is fetched; name-level dedup absorbs any
// overlap with previous fetches.
func (s *Service) FetchNewActivities(ctx context.Context, sessionName string) (int, error) {
	cursor, err := s.activities.LatestActivityTime(ctx, sessionName)
	if err != nil {
		return 0, fmt.Errorf("load activity cursor: %w", err)
	}

	fresh, err := s.fetchSinceCursor(ctx, sessionName, cursor)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	appended, err := s.activities.AppendActivities(ctx, sessionName, fresh)
	if err != nil {
		return 0, fmt.Errorf("append activities: %w", err)
	}
	if appended > 0 {
		s.cacheDelete(ctx, cacheKeyActivities(sessionName))
	}
	return appended, nil
}

// fetchSinceCursor pages through the remote listing, newest first, and
// stops at the first activity at or before the cursor. Items are
// returned oldest first so appends preserve chronology.
func (s *Service) fetchSinceCursor(ctx context.Context, sessionName, cursor string) ([]domain.Activity, error) {
	var newer []domain.Activity
	pageToken := ""
	for {
		page, next, err := s.api.ListActivities(ctx, sessionName, 0, pageToken)
		if err != nil {
			return nil, err
		}

		for _, activity := range page {
			if cursor != "" && activity.CreateTime != "" && activity.CreateTime <= cursor {
				return reverseActivities(newer), nil
			}
			newer = append(newer, activity)
		}

		if next == "" || cursor == "" {
			return reverseActivities(newer), nil
		}
		pageToken = next
	}
}

func reverseActivities(activities []domain.Activity) []domain.Activity {
	for i, j := 0, len(activities)-1; i < j; i, j = i+1, j-1 {
		activities[i], activities[j] = activities[j], activities[i]
	}
	return activities
}

// ListActivities serves the locally stored activity log.
func (s *Service) ListActivities(ctx context.Context, sessionName string) ([]domain.Activity, error) {
	return s.activities.ListActivities(ctx, sessionName)
}

// ListStoredSessions serves the local mirror without touching the
// network.
func (s *Service) ListStoredSessions(ctx context.Context) ([]domain.Session, error) {
	return s.sessions.ListSessions(ctx)
}

// WarmCache refreshes sources and sessions from the network so
// subsequent reads hit the cache.
func (s *Service) WarmCache(ctx context.Context) error {
	if _, err := s.RefreshSources(ctx, true); err != nil {
		return fmt.Errorf("warm sources: %w", err)
	}
	if _, err := s.RefreshSessions(ctx, true); err != nil {
		return fmt.Errorf("warm sessions: %w", err)
	}
	return nil
}

func (s *Service) SubscribeSources(ctx context.Context) (<-chan []domain.Source, error) {
	return s.sources.SubscribeSources(ctx)
}

func (s *Service) SubscribeSessions(ctx context.Context) (<-chan []domain.Session, error) {
	return s.sessions.SubscribeSessions(ctx)
}

func (s *Service) SubscribeActivities(ctx context.Context, sessionName string) (<-chan []domain.Activity, error) {
	return s.activities.SubscribeActivities(ctx, sessionName)
}

func (s *Service) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	return s.cache.Stats(ctx)
}

func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

func (s *Service) ResetCacheStats(ctx context.Context) error {
	return s.cache.ResetStats(ctx)
}

// cacheGet decodes a cached JSON payload into out. Cache faults count
// as misses and are logged, never surfaced.
func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Printf("application: cache read %q failed: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		s.logger.Printf("application: cache payload %q corrupt: %v", key, err)
		s.cacheDelete(ctx, key)
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Printf("application: cache encode %q failed: %v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
		s.logger.Printf("application: cache write %q failed: %v", key, err)
	}
}

func (s *Service) cacheDelete(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Printf("application: cache delete %q failed: %v", key, err)
	}
}
