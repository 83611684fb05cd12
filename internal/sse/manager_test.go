package sse

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrincipal() *auth.Principal {
	return &auth.Principal{UserID: 1, SiteID: 1, McpTokenID: "token-1", Scopes: []string{"mcp:read"}}
}

func TestRegisterAndLookup(t *testing.T) {
	m := NewManager(time.Minute, 10)
	defer m.Stop()

	s, err := m.Register(testPrincipal())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "token-1", s.McpTokenID())
	assert.Equal(t, 1, m.Count())

	found, ok := m.Lookup(s.ID)
	require.True(t, ok)
	assert.Same(t, s, found)

	_, ok = m.Lookup("nope")
	assert.False(t, ok)
}

func TestRegisterUniqueIDs(t *testing.T) {
	m := NewManager(time.Minute, 0)
	defer m.Stop()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := m.Register(testPrincipal())
		require.NoError(t, err)
		require.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}

func TestMaxSessions(t *testing.T) {
	m := NewManager(time.Minute, 2)
	defer m.Stop()

	a, err := m.Register(testPrincipal())
	require.NoError(t, err)
	_, err = m.Register(testPrincipal())
	require.NoError(t, err)

	_, err = m.Register(testPrincipal())
	assert.ErrorIs(t, err, ErrTooManySessions)

	m.Remove(a.ID)
	_, err = m.Register(testPrincipal())
	assert.NoError(t, err)
}

func TestRemoveClosesSession(t *testing.T) {
	m := NewManager(time.Minute, 10)
	defer m.Stop()

	s, err := m.Register(testPrincipal())
	require.NoError(t, err)

	m.Remove(s.ID)
	m.Remove(s.ID)

	select {
	case <-s.Done():
	default:
		t.Fatal("session should be closed")
	}
	_, ok := m.Lookup(s.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Send(context.Background(), Event{Name: EventMessage, Data: "x"}), ErrSessionClosed)
}

func TestRemoveByMcpToken(t *testing.T) {
	m := NewManager(time.Minute, 10)
	defer m.Stop()

	first, err := m.Register(testPrincipal())
	require.NoError(t, err)
	second, err := m.Register(testPrincipal())
	require.NoError(t, err)
	other, err := m.Register(&auth.Principal{UserID: 1, SiteID: 1, McpTokenID: "token-2"})
	require.NoError(t, err)

	assert.Equal(t, 2, m.RemoveByMcpToken("token-1"))
	assert.Equal(t, 0, m.RemoveByMcpToken("token-1"))

	for _, s := range []*Session{first, second} {
		select {
		case <-s.Done():
		default:
			t.Fatalf("session %s should be closed", s.ID)
		}
	}
	_, ok := m.Lookup(other.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Count())
}

func TestEvictIdle(t *testing.T) {
	m := NewManager(10*time.Minute, 10)
	defer m.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, err := m.Register(testPrincipal())
	require.NoError(t, err)
	active, err := m.Register(testPrincipal())
	require.NoError(t, err)

	now = now.Add(8 * time.Minute)
	_, ok := m.Lookup(active.ID)
	require.True(t, ok)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, m.evictIdle())

	_, ok = m.Lookup(idle.ID)
	assert.False(t, ok)
	_, ok = m.Lookup(active.ID)
	assert.True(t, ok)

	select {
	case <-idle.Done():
	default:
		t.Fatal("evicted session should be closed")
	}
}

func TestStop(t *testing.T) {
	m := NewManager(time.Minute, 10)

	s, err := m.Register(testPrincipal())
	require.NoError(t, err)

	m.Stop()
	m.Stop()

	<-s.Done()
	assert.Equal(t, 0, m.Count())
	_, err = m.Register(testPrincipal())
	assert.Error(t, err)
}

func TestSessionSend(t *testing.T) {
	m := NewManager(time.Minute, 10)
	defer m.Stop()

	s, err := m.Register(testPrincipal())
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), Event{Name: EventMessage, Data: []byte(`{"jsonrpc":"2.0"}`)}))
	e := <-s.Events()
	assert.Equal(t, EventMessage, e.Name)

	t.Run("full outbox honours the context", func(t *testing.T) {
		for i := 0; i < outboxSize; i++ {
			require.NoError(t, s.Send(context.Background(), Event{Name: EventMessage, Data: "x"}))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, s.Send(ctx, Event{Name: EventMessage, Data: "x"}), context.DeadlineExceeded)
	})
}

func TestSessionLogLevel(t *testing.T) {
	s := newSession("id", testPrincipal(), time.Now())
	assert.Equal(t, mcp.LoggingLevelInfo, s.LogLevel())

	s.SetLogLevel(mcp.LoggingLevelError)
	assert.Equal(t, mcp.LoggingLevelError, s.LogLevel())
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager(time.Minute, 0)
	defer m.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Register(testPrincipal())
			if !assert.NoError(t, err) {
				return
			}
			m.Lookup(s.ID)
			m.evictIdle()
			m.Remove(s.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, m.Count())
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Encode(&buf, Event{Name: EventEndpoint, Data: "/.sse/messages?session_id=abc"}))
	require.NoError(t, Encode(&buf, Event{Name: EventMessage, Data: []byte(`{"id":1}`)}))
	require.NoError(t, KeepAlive(&buf))

	assert.Equal(t,
		"event:endpoint\ndata:/.sse/messages?session_id=abc\n\n"+
			"event:message\ndata:{\"id\":1}\n\n"+
			": keep-alive\n\n",
		buf.String())
}
