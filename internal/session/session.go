package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one connected player's lease on the server. A session stays
// alive as long as it is touched within the lease period.
type Session struct {
	ID        string
	PlayerID  string
	Name      string
	RoundID   string
	CreatedAt time.Time
	lastSeen  time.Time
}

// Manager tracks active sessions and expires the ones whose lease lapsed.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	byPlayer    map[string]string
	leasePeriod time.Duration
	logger      *zap.Logger
}

// NewManager builds a session manager with the given lease period.
func NewManager(leasePeriod time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if leasePeriod <= 0 {
		leasePeriod = 5 * time.Minute
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		byPlayer:    make(map[string]string),
		leasePeriod: leasePeriod,
		logger:      logger,
	}
}

// Create opens a session for a player. An existing session for the same
// player is replaced; one lease per player.
func (m *Manager) Create(playerID, name string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byPlayer[playerID]; ok {
		delete(m.sessions, old)
	}

	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Name:      name,
		CreatedAt: now,
		lastSeen:  now,
	}
	m.sessions[s.ID] = s
	m.byPlayer[playerID] = s.ID

	m.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("player_id", playerID),
	)
	return s
}

// Get returns the session and renews its lease.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	s.lastSeen = time.Now()
	return s, true
}

// ByPlayer returns the player's active session without renewing it.
func (m *Manager) ByPlayer(playerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	s, ok := m.sessions[id]
	return s, ok
}

// AttachRound records which round the session is playing.
func (m *Manager) AttachRound(sessionID, roundID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	s.RoundID = roundID
	return true
}

// Close removes a session.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(sessionID)
}

// CloseAll removes every session, used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.byPlayer = make(map[string]string)
	m.logger.Info("all sessions closed", zap.Int("count", n))
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) removeLocked(sessionID string) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	delete(m.sessions, sessionID)
	if m.byPlayer[s.PlayerID] == sessionID {
		delete(m.byPlayer, s.PlayerID)
	}
	m.logger.Info("session closed",
		zap.String("session_id", sessionID),
		zap.String("player_id", s.PlayerID),
	)
}

// CleanupExpiredSessions periodically drops sessions whose lease lapsed.
// Blocks until ctx is done; run it on its own goroutine.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(m.leasePeriod / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expire(time.Now())
		}
	}
}

func (m *Manager) expire(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.leasePeriod {
			m.logger.Info("session lease expired",
				zap.String("session_id", id),
				zap.String("player_id", s.PlayerID),
				zap.Duration("idle", now.Sub(s.lastSeen)),
			)
			m.removeLocked(id)
		}
	}
}
