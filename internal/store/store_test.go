package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game"
)

func newTestStore(t *testing.T) (*RoundStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRoundStore(client, time.Minute, zap.NewNop()), mr
}

func sampleSnapshot() game.Snapshot {
	return game.Snapshot{
		Frame:      120,
		State:      "ACTIVE_HOLE",
		Hole:       2,
		Par:        3,
		TotalHoles: 9,
		Strokes:    1,
		Scorecard: []game.HoleScore{
			{Hole: 0, Par: 2, Strokes: 3, Done: true},
			{Hole: 1, Par: 3, Strokes: 2, Done: true},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "r1", sampleSnapshot()))

	got, err := s.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, uint64(120), got.Frame)
	assert.Equal(t, "ACTIVE_HOLE", got.State)
	assert.Len(t, got.Scorecard, 2)
	assert.Equal(t, 3, got.Scorecard[0].Strokes)
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "r1", sampleSnapshot()))
	mr.FastForward(2 * time.Minute)

	_, err := s.Load(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRefreshesTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "r1", sampleSnapshot()))
	mr.FastForward(45 * time.Second)
	require.NoError(t, s.Save(ctx, "r1", sampleSnapshot()))
	mr.FastForward(45 * time.Second)

	_, err := s.Load(ctx, "r1")
	assert.NoError(t, err, "second save renews the lease")
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "r1", sampleSnapshot()))
	require.NoError(t, s.Delete(ctx, "r1"))

	_, err := s.Load(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "r1"), "deleting a missing snapshot is fine")
}
