// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/db"
)

const testStartBalance = 100_000

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container with the embedded schema
// applied and returns a connection pool.
// Skips the test if Docker is not available
func setupTestDB(t testing.TB) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.Migrate(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// ============================================================================
// AccountRepository Tests
// ============================================================================

func TestAccountRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool, testStartBalance)
	ctx := context.Background()

	acc, created, err := repo.GetOrCreate(ctx, 12345, "arthur")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12345), acc.UserID)
	assert.Equal(t, "arthur", acc.Username)
	assert.Equal(t, int64(testStartBalance), acc.Balance)
	assert.Equal(t, model.MaxHealth, acc.Health)
	assert.Nil(t, acc.DebtSince)

	acc, created, err = repo.GetOrCreate(ctx, 12345, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "arthur", acc.Username, "empty username keeps the stored one")

	acc, _, err = repo.GetOrCreate(ctx, 12345, "king_arthur")
	require.NoError(t, err)
	assert.Equal(t, "king_arthur", acc.Username)

	txs, err := NewTransactionRepository(pool).GetByUserID(ctx, 12345, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxTypeInitial, txs[0].Type)
}

// updateOne runs a mutation on a single account through UpdateMany.
func updateOne(ctx context.Context, repo *AccountRepository, id int64, fn func(acc *model.Account) ([]model.Transaction, error)) (*model.Account, error) {
	accounts, err := repo.UpdateMany(ctx, []int64{id}, func(accs map[int64]*model.Account) ([]model.Transaction, error) {
		return fn(accs[id])
	})
	if err != nil {
		return nil, err
	}
	return accounts[id], nil
}

func TestAccountRepository_UpdateManyRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool, testStartBalance)
	ctx := context.Background()
	now := time.Now()

	// UpdateMany creates the account lazily.
	acc, err := updateOne(ctx, repo, 7, func(acc *model.Account) ([]model.Transaction, error) {
		assert.Equal(t, int64(testStartBalance), acc.Balance)
		acc.Balance = 0
		acc.Debt = 500
		acc.DebtSince = &now
		return []model.Transaction{{UserID: 7, Amount: -testStartBalance - 500, Type: model.TxTypeTax}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), acc.Debt)

	stored, created, err := repo.GetOrCreate(ctx, 7, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(0), stored.Balance)
	assert.Equal(t, int64(500), stored.Debt)
	require.NotNil(t, stored.DebtSince)

	// A failing mutation writes nothing.
	boom := errors.New("boom")
	_, err = updateOne(ctx, repo, 7, func(acc *model.Account) ([]model.Transaction, error) {
		acc.Debt = 0
		acc.DebtSince = nil
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	stored, _, err = repo.GetOrCreate(ctx, 7, "")
	require.NoError(t, err)
	assert.Equal(t, int64(500), stored.Debt)

	// The schema rejects a broken debt/debt_since pair.
	_, err = updateOne(ctx, repo, 7, func(acc *model.Account) ([]model.Transaction, error) {
		acc.DebtSince = nil
		return nil, nil
	})
	assert.Error(t, err)
}

func TestAccountRepository_UpdateMany(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool, testStartBalance)
	ctx := context.Background()

	accounts, err := repo.UpdateMany(ctx, []int64{2, 1, 2}, func(accs map[int64]*model.Account) ([]model.Transaction, error) {
		require.Len(t, accs, 2)
		accs[1].Balance -= 300
		accs[2].Balance += 300
		return []model.Transaction{
			{UserID: 1, Amount: -300, Type: model.TxTypeTransfer},
			{UserID: 2, Amount: 300, Type: model.TxTypeTransfer},
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(testStartBalance-300), accounts[1].Balance)
	assert.Equal(t, int64(testStartBalance+300), accounts[2].Balance)

	txs, err := NewTransactionRepository(pool).GetByUserID(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(300), txs[0].Amount)
}

func TestAccountRepository_Listings(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool, testStartBalance)
	ctx := context.Background()
	now := time.Now()

	for id, balance := range map[int64]int64{1: 3000, 2: 1000, 3: 5000} {
		_, err := updateOne(ctx, repo, id, func(acc *model.Account) ([]model.Transaction, error) {
			acc.Balance = balance
			if id == 2 {
				acc.Debt = 40
				acc.DebtSince = &now
			}
			return nil, nil
		})
		require.NoError(t, err)
	}

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	debtors, err := repo.ListDebtorIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, debtors)

	top, err := repo.TopBalances(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(3), top[0].UserID)
	assert.Equal(t, int64(1), top[1].UserID)
	assert.Equal(t, int64(2), top[2].UserID)

	owing, err := repo.TopDebtors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, owing, 1)
	assert.Equal(t, int64(40), owing[0].Debt)
}

// ============================================================================
// InventoryRepository Tests
// ============================================================================

func TestInventoryRepository_AddRemove(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, _, err := NewAccountRepository(pool, testStartBalance).GetOrCreate(ctx, 1, "gawain")
	require.NoError(t, err)
	repo := NewInventoryRepository(pool)

	require.NoError(t, repo.Add(ctx, 1, "bread", 2))
	require.NoError(t, repo.Add(ctx, 1, "bread", 1))

	qty, err := repo.Quantity(ctx, 1, "bread")
	require.NoError(t, err)
	assert.Equal(t, 3, qty)

	ok, err := repo.Remove(ctx, 1, "bread", 5)
	require.NoError(t, err)
	assert.False(t, ok, "removing more than held fails")

	qty, _ = repo.Quantity(ctx, 1, "bread")
	assert.Equal(t, 3, qty, "failed removal does not mutate")

	ok, err = repo.Remove(ctx, 1, "bread", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries, "empty stacks are deleted")

	has, err := repo.Has(ctx, 1, "bread", 1)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInventoryRepository_Equip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, _, err := NewAccountRepository(pool, testStartBalance).GetOrCreate(ctx, 1, "percival")
	require.NoError(t, err)
	repo := NewInventoryRepository(pool)

	weapons := []string{"dagger", "sword"}
	require.NoError(t, repo.Add(ctx, 1, "dagger", 1))
	require.NoError(t, repo.Add(ctx, 1, "sword", 1))

	ok, err := repo.Equip(ctx, 1, "axe", weapons)
	require.NoError(t, err)
	assert.False(t, ok, "cannot equip an unowned item")

	ok, err = repo.Equip(ctx, 1, "dagger", weapons)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Equip(ctx, 1, "sword", weapons)
	require.NoError(t, err)
	assert.True(t, ok)

	equipped, err := repo.Equipped(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"sword"}, equipped)

	require.NoError(t, repo.Unequip(ctx, 1, "sword"))
	require.NoError(t, repo.Unequip(ctx, 1, "sword"))
	equipped, err = repo.Equipped(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, equipped)
}

// ============================================================================
// CooldownRepository and StatsRepository Tests
// ============================================================================

func TestCooldownRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCooldownRepository(pool)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, 1, model.CooldownLabour)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Now().Add(-time.Minute).Truncate(time.Microsecond)
	require.NoError(t, repo.Mark(ctx, 1, model.CooldownLabour, at))
	require.NoError(t, repo.Mark(ctx, 1, model.CooldownLabour, at.Add(time.Second)))

	last, ok, err := repo.Get(ctx, 1, model.CooldownLabour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(at.Add(time.Second)))

	_, ok, err = repo.Get(ctx, 1, model.CooldownDaily)
	require.NoError(t, err)
	assert.False(t, ok, "kinds are tracked separately")
}

func TestStatsRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	accounts := NewAccountRepository(pool, testStartBalance)
	_, _, err := accounts.GetOrCreate(ctx, 1, "tristan")
	require.NoError(t, err)
	_, _, err = accounts.GetOrCreate(ctx, 2, "mordred")
	require.NoError(t, err)

	repo := NewStatsRepository(pool)

	stats, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DuelsFought)

	require.NoError(t, repo.RecordDuel(ctx, 1, true, 60))
	require.NoError(t, repo.RecordDuel(ctx, 2, false, 35))
	require.NoError(t, repo.RecordDuel(ctx, 1, true, 40))
	require.NoError(t, repo.RecordDraw(ctx, 2, 100))

	stats, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "tristan", stats.Username)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 0, stats.Losses)
	assert.Equal(t, 100, stats.DamageDealt)
	assert.Equal(t, 2, stats.DuelsFought)

	top, err := repo.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].UserID)
	assert.Equal(t, 1, top[1].Losses)
	assert.Equal(t, 2, top[1].DuelsFought)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_DailyRanks(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	accounts := NewAccountRepository(pool, 0)
	for _, id := range []int64{1, 2, 3} {
		_, _, err := accounts.GetOrCreate(ctx, id, "")
		require.NoError(t, err)
	}

	journal := []model.Transaction{
		{UserID: 1, Amount: 500, Type: model.TxTypeGamble},
		{UserID: 1, Amount: -100, Type: model.TxTypeSlots},
		{UserID: 2, Amount: -700, Type: model.TxTypeCoinflip},
		{UserID: 3, Amount: 10_000, Type: model.TxTypeLabour},
	}
	_, err := accounts.UpdateMany(ctx, []int64{1, 2, 3}, func(map[int64]*model.Account) ([]model.Transaction, error) {
		return journal, nil
	})
	require.NoError(t, err)

	repo := NewTransactionRepository(pool)
	now := time.Now()
	winners, err := repo.GetDailyWinners(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, winners, 1, "labour does not count as gambling")
	assert.Equal(t, int64(1), winners[0].UserID)
	assert.Equal(t, int64(400), winners[0].NetProfit)

	losers, err := repo.GetDailyLosers(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, losers, 1)
	assert.Equal(t, int64(-700), losers[0].NetProfit)

	profit, err := repo.GetUserDailyProfit(ctx, 2, now)
	require.NoError(t, err)
	assert.Equal(t, int64(-700), profit)

	profit, err = repo.GetUserDailyProfit(ctx, 2, now.AddDate(0, 0, -2))
	require.NoError(t, err)
	assert.Equal(t, int64(0), profit)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	start, end := dayBounds(time.Date(2024, 3, 10, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), end)
}
