package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/game"
)

// RoundRecord is a completed round as stored.
type RoundRecord struct {
	ID           string
	PlayerID     string
	CourseID     string
	TotalStrokes int
	CompletedAt  time.Time
	Scorecard    []game.HoleScore
}

// LeaderboardEntry is one row of a course leaderboard: the player's best
// completed round.
type LeaderboardEntry struct {
	PlayerID     string
	PlayerName   string
	TotalStrokes int
	CompletedAt  time.Time
}

// RoundRepository persists completed rounds and their per-hole scores.
type RoundRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewRoundRepository(db *DB, logger *zap.Logger) *RoundRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoundRepository{db: db, logger: logger}
}

// SaveCompleted writes a finished round and its scorecard in one transaction.
func (r *RoundRepository) SaveCompleted(ctx context.Context, rec RoundRecord) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO rounds (id, player_id, course_id, total_strokes, completed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.PlayerID, rec.CourseID, rec.TotalStrokes, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	for _, hs := range rec.Scorecard {
		_, err = tx.Exec(ctx,
			`INSERT INTO round_scores (round_id, hole, par, strokes)
			 VALUES ($1, $2, $3, $4)`,
			rec.ID, hs.Hole, hs.Par, hs.Strokes,
		)
		if err != nil {
			return fmt.Errorf("insert score for hole %d: %w", hs.Hole, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit round: %w", err)
	}
	r.logger.Info("round persisted",
		zap.String("round_id", rec.ID),
		zap.String("player_id", rec.PlayerID),
		zap.Int("total_strokes", rec.TotalStrokes),
	)
	return nil
}

// ListByPlayer returns the player's completed rounds, newest first.
func (r *RoundRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]RoundRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, player_id, course_id, total_strokes, completed_at
		 FROM rounds WHERE player_id = $1
		 ORDER BY completed_at DESC LIMIT $2`,
		playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var rec RoundRecord
		if err := rows.Scan(&rec.ID, &rec.PlayerID, &rec.CourseID, &rec.TotalStrokes, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Scorecard loads the per-hole scores for one round.
func (r *RoundRepository) Scorecard(ctx context.Context, roundID string) ([]game.HoleScore, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT hole, par, strokes FROM round_scores
		 WHERE round_id = $1 ORDER BY hole`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scorecard: %w", err)
	}
	defer rows.Close()

	var out []game.HoleScore
	for rows.Next() {
		hs := game.HoleScore{Done: true}
		if err := rows.Scan(&hs.Hole, &hs.Par, &hs.Strokes); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}

// Leaderboard returns the best completed round per player on a course,
// lowest stroke count first.
func (r *RoundRepository) Leaderboard(ctx context.Context, courseID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.pool.Query(ctx,
		`SELECT DISTINCT ON (r.player_id)
		        r.player_id, p.name, r.total_strokes, r.completed_at
		 FROM rounds r
		 JOIN players p ON p.id = r.player_id
		 WHERE r.course_id = $1
		 ORDER BY r.player_id, r.total_strokes ASC, r.completed_at ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.PlayerName, &e.TotalStrokes, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON yields one best round per player ordered by player; final
	// ranking is by strokes.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalStrokes != entries[j].TotalStrokes {
			return entries[i].TotalStrokes < entries[j].TotalStrokes
		}
		return entries[i].CompletedAt.Before(entries[j].CompletedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
