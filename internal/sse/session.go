package sse

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/mark3labs/mcp-go/mcp"
)

var ErrSessionClosed = errors.New("sse session closed")

const outboxSize = 16

// Session is one open SSE stream and the identity that opened it.
type Session struct {
	ID        string
	Principal *auth.Principal
	CreatedAt time.Time

	outbox    chan Event
	done      chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	lastActivity time.Time
	logLevel     mcp.LoggingLevel
}

func newSession(id string, p *auth.Principal, now time.Time) *Session {
	return &Session{
		ID:           id,
		Principal:    p,
		CreatedAt:    now,
		outbox:       make(chan Event, outboxSize),
		done:         make(chan struct{}),
		lastActivity: now,
		logLevel:     mcp.LoggingLevelInfo,
	}
}

// McpTokenID is the McpToken the session acts for.
func (s *Session) McpTokenID() string {
	if s.Principal == nil {
		return ""
	}
	return s.Principal.McpTokenID
}

// Events delivers the frames to write to the stream.
func (s *Session) Events() <-chan Event {
	return s.outbox
}

// Done is closed when the session is removed or evicted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send queues an event for the stream. It blocks while the outbox is full.
func (s *Session) Send(ctx context.Context, e Event) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.outbox <- e:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SetLogLevel records the level selected with logging/setLevel.
func (s *Session) SetLogLevel(level mcp.LoggingLevel) {
	s.mu.Lock()
	s.logLevel = level
	s.mu.Unlock()
}

func (s *Session) LogLevel() mcp.LoggingLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logLevel
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
