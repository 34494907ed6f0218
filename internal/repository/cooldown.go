package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royal-market-bot/internal/model"
)

// CooldownRepository stores the last time each user performed an action.
type CooldownRepository struct {
	pool *pgxpool.Pool
}

// NewCooldownRepository creates a new CooldownRepository instance.
func NewCooldownRepository(pool *pgxpool.Pool) *CooldownRepository {
	return &CooldownRepository{pool: pool}
}

// Get returns when the user last performed kind. The bool is false if never.
func (r *CooldownRepository) Get(ctx context.Context, userID int64, kind model.CooldownKind) (time.Time, bool, error) {
	const query = `SELECT last_performed FROM cooldowns WHERE user_id = $1 AND kind = $2`

	var last time.Time
	err := r.pool.QueryRow(ctx, query, userID, string(kind)).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return last, true, nil
}

// Mark records that the user performed kind at the given time.
func (r *CooldownRepository) Mark(ctx context.Context, userID int64, kind model.CooldownKind, at time.Time) error {
	const query = `
		INSERT INTO cooldowns (user_id, kind, last_performed)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, kind)
		DO UPDATE SET last_performed = EXCLUDED.last_performed
	`
	if _, err := r.pool.Exec(ctx, query, userID, string(kind), at); err != nil {
		return fmt.Errorf("failed to mark cooldown: %w", err)
	}
	return nil
}
