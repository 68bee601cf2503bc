package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/jules-cli/internal/domain"
	"github.com/bnema/jules-cli/internal/ports"
)

const DefaultPollInterval = 2 * time.Second

// WatchStatus is a point-in-time snapshot of the polling engine.
type WatchStatus struct {
	SessionName      string
	State            domain.SessionState
	Phase            domain.Phase
	NewActivityCount int
	LastSyncedAt     time.Time
}

// Poller keeps exactly one watched session fresh: every interval it
// pulls activities past the stored cursor and re-fetches the session
// snapshot, until the session reaches a terminal state or the watch is
// replaced. Each Watch call mints a lineage token; a cycle started
// under an older token never mutates the store, so a slow response for
// the previous session cannot clobber the current one.
type Poller struct {
	service  *Service
	clock    ports.Clock
	interval time.Duration
	logger   *log.Logger

	mu               sync.Mutex
	sessionName      string
	lineage          uuid.UUID
	newActivityCount int
	lastState        domain.SessionState
	lastSyncedAt     time.Time
}

type PollerConfig struct {
	Service  *Service
	Clock    ports.Clock
	Interval time.Duration
	Logger   *log.Logger
}

func NewPoller(cfg PollerConfig) *Poller {
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Poller{
		service:  cfg.Service,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Watch polls sessionName until it reaches a terminal state, the watch
// is replaced by a later Watch call, or ctx is done. The new-activity
// accumulator carries over when re-watching the same session and
// resets when the identity changes.
func (p *Poller) Watch(ctx context.Context, sessionName string) error {
	p.mu.Lock()
	if p.sessionName != sessionName {
		p.newActivityCount = 0
		p.lastState = ""
	}
	p.sessionName = sessionName
	token := uuid.New()
	p.lineage = token
	p.mu.Unlock()

	p.runCycle(ctx, token, sessionName)
	if !p.holdsLineage(token) {
		return nil
	}

	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if !p.holdsLineage(token) {
			return nil
		}
		p.runCycle(ctx, token, sessionName)
		if !p.holdsLineage(token) {
			return nil
		}
		timer.Reset(p.interval)
	}
}

// Stop abandons the current watch, if any.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lineage = uuid.Nil
}

func (p *Poller) Status() WatchStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := WatchStatus{
		SessionName:      p.sessionName,
		State:            p.lastState,
		NewActivityCount: p.newActivityCount,
		LastSyncedAt:     p.lastSyncedAt,
	}
	if p.lastState != "" {
		status.Phase = p.lastState.Phase()
	}
	return status
}

// runCycle performs one poll. Errors are logged and swallowed so a
// transient failure never kills the watch; the next tick tries again.
func (p *Poller) runCycle(ctx context.Context, token uuid.UUID, sessionName string) {
	cursor, err := p.service.activities.LatestActivityTime(ctx, sessionName)
	if err != nil {
		p.logger.Printf("poll: load cursor for %s: %v", sessionName, err)
		return
	}

	fresh, err := p.service.fetchSinceCursor(ctx, sessionName, cursor)
	if err != nil {
		p.logger.Printf("poll: fetch activities for %s: %v", sessionName, err)
		return
	}
	if len(fresh) > 0 {
		if !p.holdsLineage(token) {
			return
		}
		appended, err := p.service.activities.AppendActivities(ctx, sessionName, fresh)
		if err != nil {
			p.logger.Printf("poll: append activities for %s: %v", sessionName, err)
			return
		}
		if appended > 0 {
			p.service.cacheDelete(ctx, cacheKeyActivities(sessionName))
			p.accumulate(token, appended)
		}
	}

	remote, err := p.service.api.GetSession(ctx, sessionName)
	if err != nil {
		p.logger.Printf("poll: fetch session %s: %v", sessionName, err)
		return
	}

	if !p.holdsLineage(token) {
		return
	}
	if err := p.storeSnapshot(ctx, remote); err != nil {
		p.logger.Printf("poll: store session %s: %v", sessionName, err)
		return
	}

	p.mu.Lock()
	if p.lineage == token {
		p.lastState = remote.State
		p.lastSyncedAt = p.clock.Now()
		if remote.State.Terminal() {
			p.lineage = uuid.Nil
		}
	}
	p.mu.Unlock()
}

// storeSnapshot writes the remote snapshot unless the local copy is
// identical or strictly newer.
func (p *Poller) storeSnapshot(ctx context.Context, remote domain.Session) error {
	local, err := p.service.sessions.GetSession(ctx, remote.Name)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return p.putSnapshot(ctx, remote)
		}
		return err
	}

	if !remote.ObservablyDiffers(local) {
		return nil
	}
	if local.NewerThan(remote) {
		return nil
	}
	return p.putSnapshot(ctx, remote)
}

func (p *Poller) putSnapshot(ctx context.Context, session domain.Session) error {
	if err := p.service.sessions.PutSession(ctx, session); err != nil {
		return err
	}
	p.service.cacheSet(ctx, cacheKeySession(session.Name), session)
	p.service.cacheDelete(ctx, cacheKeySessions)
	return nil
}

func (p *Poller) holdsLineage(token uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lineage == token
}

func (p *Poller) accumulate(token uuid.UUID, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lineage == token {
		p.newActivityCount += n
	}
}
