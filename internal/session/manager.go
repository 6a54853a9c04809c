// Package session keeps per-client quote state between API calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/diagram"
	"github.com/data-power-io/partsquote/internal/quote"
	"github.com/data-power-io/partsquote/libs/metrics"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 2 * time.Hour

// Session is the state of one client: the parts it selected, its click
// history on the diagram, its add-part form and any open selection menu.
// Callers hold the session lock while reading or changing that state.
type Session struct {
	sync.Mutex

	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	Selection *quote.Selection
	Clicks    *diagram.Disambiguator
	Form      *diagram.PositionForm
	Menu      *diagram.Menu
	// MenuKey is the catalog the open menu belongs to.
	MenuKey string
}

// Manager owns the active sessions.
type Manager struct {
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	sessions  map[string]*Session
	sessionMu sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for expiry and click timing.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager whose sessions expire after ttl of inactivity.
func NewManager(ttl time.Duration, logger *zap.Logger, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a new session.
func (m *Manager) Open() *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Selection: quote.NewSelection(),
		Clicks:    diagram.NewDisambiguator(diagram.WithClock(m.now)),
		Form:      diagram.NewPositionForm(),
	}

	m.sessionMu.Lock()
	m.sessions[s.ID] = s
	m.sessionMu.Unlock()

	metrics.RecordSessionStart()
	m.logger.Info("Session opened", zap.String("session_id", s.ID))
	return s
}

// Get returns a live session and extends its expiry.
func (m *Manager) Get(id string) (*Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	now := m.now()
	if now.After(s.ExpiresAt) {
		m.remove(id, s, now)
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, id)
	}
	s.ExpiresAt = now.Add(m.ttl)
	return s, nil
}

// Close ends a session. Closing an unknown session is not an error.
func (m *Manager) Close(id string) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	if s, ok := m.sessions[id]; ok {
		m.remove(id, s, m.now())
		m.logger.Info("Session closed", zap.String("session_id", id))
	}
}

// Len returns the number of sessions held, expired or not.
func (m *Manager) Len() int {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string, s *Session, now time.Time) {
	delete(m.sessions, id)
	metrics.RecordSessionEnd(now.Sub(s.CreatedAt))
}

// CleanupExpiredSessions removes expired sessions and returns how many.
func (m *Manager) CleanupExpiredSessions() int {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			m.remove(id, s, now)
			removed++
			m.logger.Info("Cleaned up expired session", zap.String("session_id", id))
		}
	}
	return removed
}

// StartSessionCleanup sweeps expired sessions every interval until ctx is done.
func (m *Manager) StartSessionCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupExpiredSessions()
			}
		}
	}()
}
