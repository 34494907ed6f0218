package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/db"
)

// InventoryRepository handles item stacks and equip flags.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository creates a new InventoryRepository instance
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Add increases the quantity of an item, creating the stack if needed.
func (r *InventoryRepository) Add(ctx context.Context, userID int64, itemID string, qty int) error {
	const query = `
		INSERT INTO inventory (user_id, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = inventory.quantity + $3, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, userID, itemID, qty); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// Remove takes qty of an item. It returns false without changing anything
// when the user holds fewer than qty. A stack reaching zero is deleted.
func (r *InventoryRepository) Remove(ctx context.Context, userID int64, itemID string, qty int) (bool, error) {
	const selectQuery = `
		SELECT quantity FROM inventory
		WHERE user_id = $1 AND item_id = $2
		FOR UPDATE
	`
	const deleteQuery = `DELETE FROM inventory WHERE user_id = $1 AND item_id = $2`
	const updateQuery = `
		UPDATE inventory
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE user_id = $1 AND item_id = $2
	`

	removed := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var have int
		err := tx.QueryRow(ctx, selectQuery, userID, itemID).Scan(&have)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock item: %w", err)
		}
		if have < qty {
			return nil
		}

		if have == qty {
			_, err = tx.Exec(ctx, deleteQuery, userID, itemID)
		} else {
			_, err = tx.Exec(ctx, updateQuery, userID, itemID, qty)
		}
		if err != nil {
			return fmt.Errorf("failed to remove item: %w", err)
		}
		removed = true
		return nil
	})
	return removed, err
}

// Quantity returns how many of an item a user holds.
func (r *InventoryRepository) Quantity(ctx context.Context, userID int64, itemID string) (int, error) {
	const query = `SELECT quantity FROM inventory WHERE user_id = $1 AND item_id = $2`

	var qty int
	err := r.pool.QueryRow(ctx, query, userID, itemID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get item quantity: %w", err)
	}
	return qty, nil
}

// Has checks if a user holds at least qty of an item.
func (r *InventoryRepository) Has(ctx context.Context, userID int64, itemID string, qty int) (bool, error) {
	have, err := r.Quantity(ctx, userID, itemID)
	if err != nil {
		return false, err
	}
	return have >= qty, nil
}

// List returns all stacks a user holds, ordered by item ID.
func (r *InventoryRepository) List(ctx context.Context, userID int64) ([]model.InventoryEntry, error) {
	const query = `
		SELECT user_id, item_id, quantity, equipped, updated_at
		FROM inventory
		WHERE user_id = $1
		ORDER BY item_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.InventoryEntry])
	if err != nil {
		return nil, fmt.Errorf("failed to scan inventory: %w", err)
	}
	return entries, nil
}

// Equip marks an owned item as equipped and clears the flag on every item in
// sameSlot. It returns false when the user does not own the item.
func (r *InventoryRepository) Equip(ctx context.Context, userID int64, itemID string, sameSlot []string) (bool, error) {
	const lockQuery = `
		SELECT item_id FROM inventory
		WHERE user_id = $1 AND (item_id = $2 OR item_id = ANY($3))
		ORDER BY item_id
		FOR UPDATE
	`
	const clearQuery = `
		UPDATE inventory SET equipped = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND item_id = ANY($3) AND item_id <> $2 AND equipped
	`
	const setQuery = `
		UPDATE inventory SET equipped = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND item_id = $2
	`

	equipped := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockQuery, userID, itemID, sameSlot)
		if err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}
		owned, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("failed to scan slot: %w", err)
		}
		found := false
		for _, id := range owned {
			if id == itemID {
				found = true
				break
			}
		}
		if !found {
			return nil
		}

		if _, err := tx.Exec(ctx, clearQuery, userID, itemID, sameSlot); err != nil {
			return fmt.Errorf("failed to unequip slot: %w", err)
		}
		if _, err := tx.Exec(ctx, setQuery, userID, itemID); err != nil {
			return fmt.Errorf("failed to equip item: %w", err)
		}
		equipped = true
		return nil
	})
	return equipped, err
}

// Unequip clears the equipped flag. Unknown or already unequipped items are
// not an error.
func (r *InventoryRepository) Unequip(ctx context.Context, userID int64, itemID string) error {
	const query = `
		UPDATE inventory SET equipped = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND item_id = $2 AND equipped
	`
	if _, err := r.pool.Exec(ctx, query, userID, itemID); err != nil {
		return fmt.Errorf("failed to unequip item: %w", err)
	}
	return nil
}

// Equipped returns the IDs of a user's equipped items.
func (r *InventoryRepository) Equipped(ctx context.Context, userID int64) ([]string, error) {
	const query = `
		SELECT item_id FROM inventory
		WHERE user_id = $1 AND equipped
		ORDER BY item_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipped items: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan equipped items: %w", err)
	}
	return ids, nil
}
