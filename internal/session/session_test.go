package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())

	s := m.Create("p1", "alice")
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "p1", got.PlayerID)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 1, m.Count())
}

func TestCreateReplacesExistingPlayerSession(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())

	first := m.Create("p1", "alice")
	second := m.Create("p1", "alice")

	_, ok := m.Get(first.ID)
	assert.False(t, ok, "old session must be evicted")
	_, ok = m.Get(second.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Count())
}

func TestByPlayer(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())
	s := m.Create("p1", "alice")

	got, ok := m.ByPlayer("p1")
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	_, ok = m.ByPlayer("nobody")
	assert.False(t, ok)
}

func TestAttachRound(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())
	s := m.Create("p1", "alice")

	require.True(t, m.AttachRound(s.ID, "round-9"))
	got, _ := m.Get(s.ID)
	assert.Equal(t, "round-9", got.RoundID)

	assert.False(t, m.AttachRound("missing", "round-9"))
}

func TestExpireDropsStaleLeases(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())
	stale := m.Create("p1", "alice")
	fresh := m.Create("p2", "bob")

	m.mu.Lock()
	m.sessions[stale.ID].lastSeen = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()

	m.expire(time.Now())

	_, ok := m.Get(stale.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}

func TestGetRenewsLease(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())
	s := m.Create("p1", "alice")

	m.mu.Lock()
	m.sessions[s.ID].lastSeen = time.Now().Add(-50 * time.Second)
	m.mu.Unlock()

	_, ok := m.Get(s.ID)
	require.True(t, ok)

	m.expire(time.Now().Add(30 * time.Second))
	_, ok = m.Get(s.ID)
	assert.True(t, ok, "touched session survives past the original lease")
}

func TestCloseAll(t *testing.T) {
	m := NewManager(time.Minute, zap.NewNop())
	m.Create("p1", "alice")
	m.Create("p2", "bob")

	m.CloseAll()
	assert.Equal(t, 0, m.Count())
	_, ok := m.ByPlayer("p1")
	assert.False(t, ok)
}
