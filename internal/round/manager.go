package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/config"
	"github.com/puttworks/putt-server-go/internal/game"
	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/repository"
)

// ErrPlayerBusy is returned when a player already has a live round.
var ErrPlayerBusy = errors.New("player already has an active round")

// Persister stores finished rounds. Usually *repository.RoundRepository.
type Persister interface {
	SaveCompleted(ctx context.Context, rec repository.RoundRecord) error
}

// Snapshots caches live round state. Usually *store.RoundStore.
type Snapshots interface {
	Save(ctx context.Context, roundID string, snap game.Snapshot) error
	Delete(ctx context.Context, roundID string) error
}

// Manager owns all live rounds. Persistence work runs on a shared worker
// pool so a slow database never stalls a tick loop.
type Manager struct {
	mu       sync.RWMutex
	rounds   map[string]*Round
	byPlayer map[string]string

	cfg    config.GameConfig
	logger *zap.Logger
	pool   *ants.Pool

	repo  Persister
	cache Snapshots

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager builds the round manager. repo and cache may be nil; the server
// then runs without persistence.
func NewManager(cfg config.GameConfig, repo Persister, cache Snapshots, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.PersistWorkers
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers,
		ants.WithPanicHandler(func(p interface{}) {
			logger.Error("persistence worker panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		rounds:   make(map[string]*Round),
		byPlayer: make(map[string]string),
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		repo:     repo,
		cache:    cache,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// CreateRound starts a new round for the player on the given course. One
// live round per player.
func (m *Manager) CreateRound(playerID string, crs *course.Course) (*Round, error) {
	engineCfg := game.Config{
		MaxStrikePower:   m.cfg.MaxStrikePower,
		HazardResetDelay: m.cfg.HazardResetDelay,
	}
	engine, err := game.NewEngine(crs, engineCfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.byPlayer[playerID]; busy {
		return nil, ErrPlayerBusy
	}

	id := uuid.NewString()
	r := newRound(id, playerID, engine, crs.ID, m.cfg.TickRate, m.cfg.SnapshotRate, m.logger)
	r.onCompleted = m.persistCompleted
	r.onSnapshot = m.cacheSnapshot

	m.rounds[id] = r
	m.byPlayer[playerID] = id
	go r.run(m.ctx)

	m.logger.Info("round created",
		zap.String("round_id", id),
		zap.String("player_id", playerID),
		zap.String("course_id", crs.ID),
	)
	return r, nil
}

// Round returns a live round by ID.
func (m *Manager) Round(id string) (*Round, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rounds[id]
	return r, ok
}

// RoundByPlayer returns the player's live round.
func (m *Manager) RoundByPlayer(playerID string) (*Round, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	r, ok := m.rounds[id]
	return r, ok
}

// Count returns the number of live rounds.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rounds)
}

// CloseRound stops and forgets a round.
func (m *Manager) CloseRound(id string) {
	m.mu.Lock()
	r, ok := m.rounds[id]
	if ok {
		delete(m.rounds, id)
		if m.byPlayer[r.PlayerID] == id {
			delete(m.byPlayer, r.PlayerID)
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	r.Close()
	m.dropSnapshot(id)
}

// CloseIdle stops rounds that have not seen a command for longer than
// maxIdle. Returns the number closed.
func (m *Manager) CloseIdle(maxIdle time.Duration) int {
	m.mu.RLock()
	var stale []string
	for id, r := range m.rounds {
		if r.IdleFor() > maxIdle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.logger.Info("closing idle round", zap.String("round_id", id))
		m.CloseRound(id)
	}
	return len(stale)
}

// ReapIdleRounds periodically closes idle rounds. Blocks until ctx is done;
// run it on its own goroutine.
func (m *Manager) ReapIdleRounds(ctx context.Context) {
	maxIdle := m.cfg.IdleTimeout
	if maxIdle <= 0 {
		maxIdle = 10 * time.Minute
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CloseIdle(maxIdle)
		}
	}
}

// Shutdown stops every round and the worker pool.
func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	rounds := m.rounds
	m.rounds = make(map[string]*Round)
	m.byPlayer = make(map[string]string)
	m.mu.Unlock()

	for _, r := range rounds {
		r.Close()
	}
	m.pool.Release()
	m.logger.Info("round manager stopped", zap.Int("rounds_closed", len(rounds)))
}

func (m *Manager) persistCompleted(r *Round, snap game.Snapshot) {
	if m.repo == nil {
		return
	}
	rec := repository.RoundRecord{
		ID:           r.ID,
		PlayerID:     r.PlayerID,
		CourseID:     r.CourseID,
		TotalStrokes: snap.TotalStrokes,
		CompletedAt:  time.Now().UTC(),
		Scorecard:    snap.Scorecard,
	}
	err := m.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		defer cancel()
		if err := m.repo.SaveCompleted(ctx, rec); err != nil {
			m.logger.Error("failed to persist round",
				zap.String("round_id", rec.ID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		m.logger.Error("persist submit failed", zap.String("round_id", rec.ID), zap.Error(err))
	}
	m.dropSnapshot(r.ID)
}

func (m *Manager) cacheSnapshot(r *Round, snap game.Snapshot) {
	if m.cache == nil {
		return
	}
	id := r.ID
	if err := m.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(m.ctx, 2*time.Second)
		defer cancel()
		if err := m.cache.Save(ctx, id, snap); err != nil {
			m.logger.Warn("snapshot cache write failed", zap.String("round_id", id), zap.Error(err))
		}
	}); err != nil {
		m.logger.Warn("snapshot submit failed", zap.String("round_id", id), zap.Error(err))
	}
}

func (m *Manager) dropSnapshot(roundID string) {
	if m.cache == nil {
		return
	}
	if err := m.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.cache.Delete(ctx, roundID); err != nil {
			m.logger.Warn("snapshot delete failed", zap.String("round_id", roundID), zap.Error(err))
		}
	}); err != nil {
		m.logger.Warn("snapshot delete submit failed", zap.String("round_id", roundID), zap.Error(err))
	}
}
