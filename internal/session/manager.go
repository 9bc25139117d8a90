package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sablecourt/accord/internal/bus"
)

// ErrUnknownSession reports a session id that does not exist or has
// expired.
var ErrUnknownSession = errors.New("unknown session")

// Manager owns all live sessions and expires idle ones.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
	ttl      time.Duration
}

// NewManager creates a session manager. A ttl of zero disables expiry.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		ttl:      ttl,
	}
}

// Create starts a new session with n countries and returns it.
func (m *Manager) Create(ctx context.Context, n int) (*Session, error) {
	id := uuid.New().String()
	s, err := New(ctx, id, n, m.deps)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Info().Str("session", id).Int("countries", n).Msg("session created")
	return s, nil
}

// Get returns a live session by id. An expired session is removed and
// reported as unknown.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSession
	}

	if m.expired(s) {
		m.expire(id)
		return nil, ErrUnknownSession
	}
	return s, nil
}

// Remove drops a session and its journal records.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok && s.journal != nil {
		if err := s.journal.DeleteSession(id); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("delete session journal")
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep expires all idle sessions and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if m.expired(s) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.expire(id)
	}
	return len(stale)
}

// Run sweeps expired sessions on the given interval until the context
// is canceled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Info().Int("expired", n).Msg("swept idle sessions")
			}
		}
	}
}

func (m *Manager) expired(s *Session) bool {
	return m.ttl > 0 && time.Since(s.LastActive()) > m.ttl
}

func (m *Manager) expire(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}

	log.Info().Str("session", id).Msg("session expired")
	if s.bus != nil {
		s.bus.Publish(bus.Event{Type: bus.EventSessionExpired, SessionID: id})
	}
}
