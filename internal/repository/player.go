package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Player is a registered account.
type Player struct {
	ID           string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// PlayerRepository persists player accounts.
type PlayerRepository struct {
	db *DB
}

func NewPlayerRepository(db *DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player. Names are unique.
func (r *PlayerRepository) Create(ctx context.Context, name, passwordHash string) (*Player, error) {
	p := &Player{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO players (id, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING`,
		p.ID, p.Name, p.PasswordHash, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}

	// The insert is silent on conflict; read back to tell the two cases apart.
	stored, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if stored.ID != p.ID {
		return nil, ErrAlreadyExists
	}
	return p, nil
}

// GetByName looks a player up by unique name.
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (*Player, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT id, name, password_hash, created_at FROM players WHERE name = $1`, name))
}

// GetByID looks a player up by ID.
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*Player, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT id, name, password_hash, created_at FROM players WHERE id = $1`, id))
}

func (r *PlayerRepository) scanOne(row pgx.Row) (*Player, error) {
	var p Player
	if err := row.Scan(&p.ID, &p.Name, &p.PasswordHash, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	return &p, nil
}
