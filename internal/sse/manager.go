package sse

import (
	"errors"
	"sync"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrTooManySessions = errors.New("too many open sse sessions")

const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultMaxSessions = 1000

	sweepInterval    = time.Minute
	minSweepInterval = time.Second
)

// Manager tracks the open SSE sessions. Sessions idle for longer than the
// idle timeout are evicted by a background sweep; Stop ends the sweep and
// closes every session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout time.Duration
	maxSessions int
	now         func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager starts a manager. maxSessions of 0 disables the cap.
func NewManager(idleTimeout time.Duration, maxSessions int) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if maxSessions < 0 {
		maxSessions = DefaultMaxSessions
	}
	m := &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		maxSessions: maxSessions,
		now:         func() time.Time { return time.Now().UTC() },
		stop:        make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Register opens a session for p.
func (m *Manager) Register(p *auth.Principal) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.stop:
		return nil, ErrSessionClosed
	default:
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		log.WithField("max_sessions", m.maxSessions).Warn("Rejecting SSE session, limit reached")
		return nil, ErrTooManySessions
	}

	s := newSession(uuid.NewString(), p, m.now())
	m.sessions[s.ID] = s
	log.WithFields(logrus.Fields{
		"session_id":   s.ID,
		"mcp_token_id": s.McpTokenID(),
	}).Debug("SSE session registered")
	return s, nil
}

// Lookup returns the session and marks it active.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// Remove closes and forgets the session. Unknown ids are ignored.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
		log.WithField("session_id", id).Debug("SSE session removed")
	}
}

// RemoveByMcpToken closes every session opened with mcpTokenID and reports
// how many there were.
func (m *Manager) RemoveByMcpToken(mcpTokenID string) int {
	m.mu.Lock()
	var closed []*Session
	for id, s := range m.sessions {
		if s.McpTokenID() == mcpTokenID {
			closed = append(closed, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range closed {
		s.close()
	}
	if len(closed) > 0 {
		log.WithFields(logrus.Fields{
			"mcp_token_id": mcpTokenID,
			"sessions":     len(closed),
		}).Info("SSE sessions closed after token revocation")
	}
	return len(closed)
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stop closes every session and ends the sweep. It is safe to call twice.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)

		m.mu.Lock()
		defer m.mu.Unlock()
		for id, s := range m.sessions {
			s.close()
			delete(m.sessions, id)
		}
		log.Debug("SSE session manager stopped")
	})
}

func (m *Manager) sweepLoop() {
	interval := sweepInterval
	if half := m.idleTimeout / 2; half < interval {
		interval = max(half, minSweepInterval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stop:
			return
		}
	}
}

// evictIdle removes sessions idle for longer than the idle timeout and
// returns how many it removed.
func (m *Manager) evictIdle() int {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.close()
	}
	if len(evicted) > 0 {
		log.WithField("count", len(evicted)).Info("Evicted idle SSE sessions")
	}
	return len(evicted)
}
