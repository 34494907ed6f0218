package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royal-market-bot/internal/model"
)

// StatsRepository handles durable duel records.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository instance.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// RecordDuel adds one fought duel to a user's record.
func (r *StatsRepository) RecordDuel(ctx context.Context, userID int64, won bool, damage int) error {
	const query = `
		INSERT INTO duel_stats (user_id, wins, losses, damage_dealt, duels_fought, updated_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			wins = duel_stats.wins + EXCLUDED.wins,
			losses = duel_stats.losses + EXCLUDED.losses,
			damage_dealt = duel_stats.damage_dealt + EXCLUDED.damage_dealt,
			duels_fought = duel_stats.duels_fought + 1,
			updated_at = NOW()
	`
	wins, losses := 0, 1
	if won {
		wins, losses = 1, 0
	}
	if _, err := r.pool.Exec(ctx, query, userID, wins, losses, damage); err != nil {
		return fmt.Errorf("failed to record duel: %w", err)
	}
	return nil
}

// RecordDraw adds a drawn duel to a user's record.
func (r *StatsRepository) RecordDraw(ctx context.Context, userID int64, damage int) error {
	const query = `
		INSERT INTO duel_stats (user_id, damage_dealt, duels_fought, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			damage_dealt = duel_stats.damage_dealt + EXCLUDED.damage_dealt,
			duels_fought = duel_stats.duels_fought + 1,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, userID, damage); err != nil {
		return fmt.Errorf("failed to record draw: %w", err)
	}
	return nil
}

// Get returns a user's record, zeroed if they never fought.
func (r *StatsRepository) Get(ctx context.Context, userID int64) (*model.DuelStats, error) {
	const query = `
		SELECT s.user_id, a.username, s.wins, s.losses, s.damage_dealt, s.duels_fought, s.updated_at
		FROM duel_stats s
		JOIN accounts a ON a.user_id = s.user_id
		WHERE s.user_id = $1
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel stats: %w", err)
	}
	stats, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[model.DuelStats])
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.DuelStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan duel stats: %w", err)
	}
	return stats, nil
}

// Top retrieves the duelists with the most wins.
func (r *StatsRepository) Top(ctx context.Context, limit int) ([]*model.DuelStats, error) {
	const query = `
		SELECT s.user_id, a.username, s.wins, s.losses, s.damage_dealt, s.duels_fought, s.updated_at
		FROM duel_stats s
		JOIN accounts a ON a.user_id = s.user_id
		ORDER BY s.wins DESC, s.damage_dealt DESC, s.user_id
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top duelists: %w", err)
	}
	stats, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[model.DuelStats])
	if err != nil {
		return nil, fmt.Errorf("failed to scan duel stats: %w", err)
	}
	return stats, nil
}
