package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game"
)

// ErrNotFound is returned when no snapshot exists for a round.
var ErrNotFound = errors.New("round snapshot not found")

// Connect opens and verifies a redis connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RoundStore keeps the latest snapshot of each live round in redis, letting a
// reconnecting client resume mid-round without waiting for the next tick.
type RoundStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRoundStore builds a store with the given snapshot TTL.
func NewRoundStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RoundStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RoundStore{client: client, ttl: ttl, logger: logger}
}

func roundKey(roundID string) string {
	return "round:" + roundID + ":snapshot"
}

// Save writes the round's latest snapshot, refreshing the TTL.
func (s *RoundStore) Save(ctx context.Context, roundID string, snap game.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.SetEx(ctx, roundKey(roundID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load returns the latest stored snapshot for a round.
func (s *RoundStore) Load(ctx context.Context, roundID string) (game.Snapshot, error) {
	payload, err := s.client.Get(ctx, roundKey(roundID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return game.Snapshot{}, ErrNotFound
		}
		return game.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap game.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Delete drops a round's snapshot once the round is over.
func (s *RoundStore) Delete(ctx context.Context, roundID string) error {
	if err := s.client.Del(ctx, roundKey(roundID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
