// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/db"
)

const accountColumns = `user_id, username, balance, debt, debt_since, health, imprisoned, created_at, updated_at`

// AccountMutation changes locked accounts in place and returns the journal
// rows to record in the same database transaction.
type AccountMutation func(accounts map[int64]*model.Account) ([]model.Transaction, error)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, extra ...any) (*model.Account, error) {
	var acc model.Account
	dest := []any{
		&acc.UserID,
		&acc.Username,
		&acc.Balance,
		&acc.Debt,
		&acc.DebtSince,
		&acc.Health,
		&acc.Imprisoned,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &acc, nil
}

// AccountRepository handles ledger account persistence.
type AccountRepository struct {
	pool         *pgxpool.Pool
	startBalance int64
}

// NewAccountRepository creates a new AccountRepository. Accounts created
// lazily receive startBalance copper.
func NewAccountRepository(pool *pgxpool.Pool, startBalance int64) *AccountRepository {
	return &AccountRepository{pool: pool, startBalance: startBalance}
}

// GetOrCreate retrieves an account, creating it with the starting purse if
// it doesn't exist. A non-empty username replaces the stored one.
// Concurrent first accesses resolve to a single row.
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID int64, username string) (*model.Account, bool, error) {
	const query = `
		INSERT INTO accounts (user_id, username, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE accounts.username END
		RETURNING ` + accountColumns + `, (xmax = 0) AS created
	`

	var (
		acc     *model.Account
		created bool
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		acc, err = scanAccount(tx.QueryRow(ctx, query, userID, username, r.startBalance), &created)
		if err != nil {
			return fmt.Errorf("failed to upsert account: %w", err)
		}
		if created && r.startBalance > 0 {
			desc := "starting purse"
			return insertTransaction(ctx, tx, model.Transaction{
				UserID:      userID,
				Amount:      r.startBalance,
				Type:        model.TxTypeInitial,
				Description: &desc,
			})
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return acc, created, nil
}

// UpdateMany runs fn over the given accounts inside one database transaction.
// Missing accounts are created with the starting purse. Rows are locked with
// SELECT ... FOR UPDATE in ascending user ID order, then every account is
// written back and the journal rows fn returned are inserted. If fn returns
// an error nothing is written and that error is returned unwrapped.
func (r *AccountRepository) UpdateMany(ctx context.Context, userIDs []int64, fn AccountMutation) (map[int64]*model.Account, error) {
	ids := slices.Clone(userIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	const ensureQuery = `
		INSERT INTO accounts (user_id, balance)
		SELECT id, $2 FROM unnest($1::bigint[]) AS id
		ON CONFLICT (user_id) DO NOTHING
	`
	const lockQuery = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = ANY($1)
		ORDER BY user_id
		FOR UPDATE
	`
	const saveQuery = `
		UPDATE accounts
		SET balance = $2, debt = $3, debt_since = $4, health = $5, imprisoned = $6, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`

	var result map[int64]*model.Account
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureQuery, ids, r.startBalance); err != nil {
			return fmt.Errorf("failed to ensure accounts: %w", err)
		}

		rows, err := tx.Query(ctx, lockQuery, ids)
		if err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		accounts := make(map[int64]*model.Account, len(ids))
		for rows.Next() {
			acc, err := scanAccount(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan account: %w", err)
			}
			accounts[acc.UserID] = acc
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating accounts: %w", err)
		}

		entries, err := fn(accounts)
		if err != nil {
			return err
		}

		for _, id := range ids {
			acc := accounts[id]
			err := tx.QueryRow(ctx, saveQuery,
				acc.UserID, acc.Balance, acc.Debt, acc.DebtSince, acc.Health, acc.Imprisoned,
			).Scan(&acc.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to save account %d: %w", id, err)
			}
		}
		for _, entry := range entries {
			if err := insertTransaction(ctx, tx, entry); err != nil {
				return err
			}
		}

		result = accounts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListIDs returns every account's user ID in ascending order.
func (r *AccountRepository) ListIDs(ctx context.Context) ([]int64, error) {
	return r.collectIDs(ctx, `SELECT user_id FROM accounts ORDER BY user_id`)
}

// ListDebtorIDs returns the user IDs of accounts with outstanding debt.
func (r *AccountRepository) ListDebtorIDs(ctx context.Context) ([]int64, error) {
	return r.collectIDs(ctx, `SELECT user_id FROM accounts WHERE debt > 0 ORDER BY user_id`)
}

func (r *AccountRepository) collectIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect account ids: %w", err)
	}
	return ids, nil
}

// TopBalances retrieves the richest accounts.
func (r *AccountRepository) TopBalances(ctx context.Context, limit int) ([]*model.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY balance DESC, user_id
		LIMIT $1
	`
	return r.listAccounts(ctx, query, limit)
}

// TopDebtors retrieves the accounts owing the most.
func (r *AccountRepository) TopDebtors(ctx context.Context, limit int) ([]*model.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE debt > 0
		ORDER BY debt DESC, user_id
		LIMIT $1
	`
	return r.listAccounts(ctx, query, limit)
}

func (r *AccountRepository) listAccounts(ctx context.Context, query string, args ...any) ([]*model.Account, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}
