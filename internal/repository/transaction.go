package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"royal-market-bot/internal/model"
)

// execer is satisfied by *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTransaction(ctx context.Context, q execer, t model.Transaction) error {
	const query = `
		INSERT INTO transactions (user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := q.Exec(ctx, query, t.UserID, t.Amount, t.Type, t.Description); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// TransactionRepository handles the ledger journal.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// GetByUserID retrieves a user's most recent journal rows, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, user_id, amount, type, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[model.Transaction])
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}
	return txs, nil
}

// GetDailyWinners retrieves the users with the best net gambling result for
// the day containing date.
func (r *TransactionRepository) GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	const query = `
		SELECT t.user_id, a.username, COALESCE(SUM(t.amount), 0) AS net_profit
		FROM transactions t
		JOIN accounts a ON t.user_id = a.user_id
		WHERE t.type = ANY($1)
		  AND t.created_at >= $2
		  AND t.created_at < $3
		GROUP BY t.user_id, a.username
		HAVING SUM(t.amount) > 0
		ORDER BY net_profit DESC
		LIMIT $4
	`
	return r.dailyRanks(ctx, query, date, limit)
}

// GetDailyLosers retrieves the users with the worst net gambling result for
// the day containing date, biggest loss first.
func (r *TransactionRepository) GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error) {
	const query = `
		SELECT t.user_id, a.username, COALESCE(SUM(t.amount), 0) AS net_profit
		FROM transactions t
		JOIN accounts a ON t.user_id = a.user_id
		WHERE t.type = ANY($1)
		  AND t.created_at >= $2
		  AND t.created_at < $3
		GROUP BY t.user_id, a.username
		HAVING SUM(t.amount) < 0
		ORDER BY net_profit ASC
		LIMIT $4
	`
	return r.dailyRanks(ctx, query, date, limit)
}

// GetUserDailyProfit retrieves a user's net gambling result for a day.
func (r *TransactionRepository) GetUserDailyProfit(ctx context.Context, userID int64, date time.Time) (int64, error) {
	start, end := dayBounds(date)

	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1
		  AND type = ANY($2)
		  AND created_at >= $3
		  AND created_at < $4
	`

	var profit int64
	err := r.pool.QueryRow(ctx, query, userID, model.GameTransactionTypes(), start, end).Scan(&profit)
	if err != nil {
		return 0, fmt.Errorf("failed to get user daily profit: %w", err)
	}
	return profit, nil
}

func (r *TransactionRepository) dailyRanks(ctx context.Context, query string, date time.Time, limit int) ([]*model.DailyRank, error) {
	start, end := dayBounds(date)

	rows, err := r.pool.Query(ctx, query, model.GameTransactionTypes(), start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	ranks, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[model.DailyRank])
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily rank: %w", err)
	}
	return ranks, nil
}

// dayBounds returns the start of date's calendar day and the start of the
// next one, in date's location.
func dayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}
