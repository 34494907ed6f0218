package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/catalog"
	"royal-market-bot/internal/model"
)

// Market and inventory errors.
var (
	ErrItemNotFound             = errors.New("item not found")
	ErrInsufficientItemQuantity = errors.New("insufficient item quantity")
	ErrNotEquippable            = errors.New("item cannot be equipped")
	ErrNotUsable                = errors.New("item cannot be used")
	ErrQuantityTooLarge         = errors.New("quantity too large")
)

// MaxPurchaseQuantity is the most of one item a single purchase may take.
const MaxPurchaseQuantity = 1000

// InventoryStore is the persistence the shop needs.
type InventoryStore interface {
	Add(ctx context.Context, userID int64, itemID string, qty int) error
	Remove(ctx context.Context, userID int64, itemID string, qty int) (bool, error)
	Quantity(ctx context.Context, userID int64, itemID string) (int, error)
	List(ctx context.Context, userID int64) ([]model.InventoryEntry, error)
	Equip(ctx context.Context, userID int64, itemID string, sameSlot []string) (bool, error)
	Unequip(ctx context.Context, userID int64, itemID string) error
	Equipped(ctx context.Context, userID int64) ([]string, error)
}

// SackEntry is an inventory stack joined with its catalog definition.
type SackEntry struct {
	Item     catalog.Item
	Quantity int
	Equipped bool
}

// UseResult describes what using an item did.
type UseResult struct {
	Item     catalog.Item
	Consumed bool
	Healed   int
	Account  *model.Account
}

// ShopService handles market purchases and everything done with owned items.
type ShopService struct {
	inventory InventoryStore
	ledger    *LedgerService
	catalog   *catalog.Catalog
}

// NewShopService creates a new ShopService instance
func NewShopService(inventory InventoryStore, ledger *LedgerService, cat *catalog.Catalog) *ShopService {
	return &ShopService{
		inventory: inventory,
		ledger:    ledger,
		catalog:   cat,
	}
}

// Catalog returns the market the shop sells from.
func (s *ShopService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Buy purchases qty of an item. The balance must cover the full price.
func (s *ShopService) Buy(ctx context.Context, userID int64, id catalog.ItemID, qty int) (*model.Account, error) {
	item, ok := s.catalog.Get(id)
	if !ok {
		return nil, ErrItemNotFound
	}
	if qty <= 0 {
		return nil, ErrInvalidAmount
	}
	if qty > MaxPurchaseQuantity || item.Price > math.MaxInt64/int64(qty) {
		return nil, ErrQuantityTooLarge
	}

	cost := item.Price * int64(qty)
	acc, err := s.ledger.Debit(ctx, userID, cost, model.TxTypePurchase, fmt.Sprintf("bought %d × %s", qty, item.Name))
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Add(ctx, userID, string(item.ID), qty); err != nil {
		if _, rerr := s.ledger.Refund(ctx, userID, cost, model.TxTypePurchase, "refund: "+item.Name); rerr != nil {
			log.Error().Err(rerr).Int64("user_id", userID).Int64("amount", cost).Msg("Failed to refund purchase")
		}
		return nil, fmt.Errorf("failed to deliver item: %w", err)
	}

	log.Info().
		Int64("user_id", userID).
		Str("item", string(item.ID)).
		Int("qty", qty).
		Int64("cost", cost).
		Msg("Item purchased")
	return acc, nil
}

// Add grants qty of an item without payment.
func (s *ShopService) Add(ctx context.Context, userID int64, id catalog.ItemID, qty int) error {
	if _, ok := s.catalog.Get(id); !ok {
		return ErrItemNotFound
	}
	if qty <= 0 {
		return ErrInvalidAmount
	}
	return s.inventory.Add(ctx, userID, string(id), qty)
}

// Remove takes qty of an item. It returns false without mutation when the
// user holds fewer.
func (s *ShopService) Remove(ctx context.Context, userID int64, id catalog.ItemID, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidAmount
	}
	ok, err := s.inventory.Remove(ctx, userID, string(id), qty)
	if err != nil {
		return false, fmt.Errorf("failed to remove item: %w", err)
	}
	return ok, nil
}

// Has reports whether the user holds at least qty of an item.
func (s *ShopService) Has(ctx context.Context, userID int64, id catalog.ItemID, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidAmount
	}
	have, err := s.inventory.Quantity(ctx, userID, string(id))
	if err != nil {
		return false, fmt.Errorf("failed to check item: %w", err)
	}
	return have >= qty, nil
}

// Use applies an owned item. Provisions and potions are consumed; a potion
// with a heal value restores account health. Other items are shown but kept.
func (s *ShopService) Use(ctx context.Context, userID int64, id catalog.ItemID) (*UseResult, error) {
	item, ok := s.catalog.Get(id)
	if !ok {
		return nil, ErrItemNotFound
	}
	if item.IsTitle() {
		return nil, ErrNotUsable
	}

	res := &UseResult{Item: item}
	if !item.Consumable() {
		have, err := s.inventory.Quantity(ctx, userID, string(id))
		if err != nil {
			return nil, fmt.Errorf("failed to check item: %w", err)
		}
		if have == 0 {
			return nil, ErrInsufficientItemQuantity
		}
		return res, nil
	}

	removed, err := s.inventory.Remove(ctx, userID, string(id), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to consume item: %w", err)
	}
	if !removed {
		return nil, ErrInsufficientItemQuantity
	}
	res.Consumed = true

	if heal := item.HealAmount(); heal > 0 {
		before, err := s.ledger.GetAccount(ctx, userID, "")
		if err != nil {
			return nil, err
		}
		acc, err := s.ledger.AdjustHealth(ctx, userID, heal)
		if err != nil {
			return nil, err
		}
		res.Healed = acc.Health - before.Health
		res.Account = acc
	}
	return res, nil
}

// Equip equips an owned weapon or armor, unequipping whatever else held the
// slot. It returns false when the user does not own the item.
func (s *ShopService) Equip(ctx context.Context, userID int64, id catalog.ItemID) (bool, error) {
	item, ok := s.catalog.Get(id)
	if !ok {
		return false, ErrItemNotFound
	}
	if !item.Equippable() {
		return false, ErrNotEquippable
	}

	slot := item.Slot()
	var sameSlot []string
	for _, other := range s.catalog.Filter(func(i catalog.Item) bool { return i.Slot() == slot }) {
		sameSlot = append(sameSlot, string(other.ID))
	}

	equipped, err := s.inventory.Equip(ctx, userID, string(id), sameSlot)
	if err != nil {
		return false, fmt.Errorf("failed to equip item: %w", err)
	}
	return equipped, nil
}

// Unequip clears the equipped flag. It is a no-op for items not equipped.
func (s *ShopService) Unequip(ctx context.Context, userID int64, id catalog.ItemID) error {
	if _, ok := s.catalog.Get(id); !ok {
		return ErrItemNotFound
	}
	if err := s.inventory.Unequip(ctx, userID, string(id)); err != nil {
		return fmt.Errorf("failed to unequip item: %w", err)
	}
	return nil
}

// Sack lists a user's belongings in catalog order. Stacks of items no
// longer in the catalog are skipped.
func (s *ShopService) Sack(ctx context.Context, userID int64) ([]SackEntry, error) {
	entries, err := s.inventory.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	held := make(map[catalog.ItemID]model.InventoryEntry, len(entries))
	for _, e := range entries {
		held[catalog.ItemID(e.ItemID)] = e
	}

	var sack []SackEntry
	for _, item := range s.catalog.All() {
		if e, ok := held[item.ID]; ok {
			sack = append(sack, SackEntry{Item: item, Quantity: e.Quantity, Equipped: e.Equipped})
		}
	}
	return sack, nil
}

// Defense sums the defense bonuses of the user's equipped armor.
func (s *ShopService) Defense(ctx context.Context, userID int64) (int, error) {
	ids, err := s.inventory.Equipped(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list equipped items: %w", err)
	}
	total := 0
	for _, id := range ids {
		if item, ok := s.catalog.Get(catalog.ItemID(id)); ok {
			total += item.DefenseBonus()
		}
	}
	return total, nil
}

// ConsumePotion uses up one healing potion. It returns false if the user
// has none.
func (s *ShopService) ConsumePotion(ctx context.Context, userID int64) (bool, error) {
	return s.Remove(ctx, userID, catalog.HealingPotion, 1)
}
