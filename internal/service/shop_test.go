package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royal-market-bot/internal/catalog"
	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/model"
)

func TestShop_Buy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100*currency.Gold, 0)

	_, err := f.shop.Buy(ctx, 1, "excalibur", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.shop.Buy(ctx, 1, catalog.HealingPotion, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.shop.Buy(ctx, 1, "plate_armor", 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	acc, err := f.shop.Buy(ctx, 1, catalog.HealingPotion, 2)
	require.NoError(t, err)
	assert.Equal(t, 70*currency.Gold, acc.Balance)

	have, err := f.shop.Has(ctx, 1, catalog.HealingPotion, 2)
	require.NoError(t, err)
	assert.True(t, have)
	assert.Len(t, f.accounts.entries(model.TxTypePurchase), 1)
}

func TestShop_BuyRefundsFailedDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100*currency.Gold, 0)
	f.inventory.fail = errors.New("storage down")

	_, err := f.shop.Buy(ctx, 1, "bread", 3)
	require.Error(t, err)
	assert.Equal(t, 100*currency.Gold, f.accounts.get(1).Balance)
}

func TestShop_BuyRefundLeavesDebtAndPrison(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)
	since := f.clock.AddDate(0, 0, -5)
	f.accounts.set(model.Account{
		UserID:     1,
		Balance:    100 * currency.Gold,
		Debt:       10 * currency.Gold,
		DebtSince:  &since,
		Imprisoned: true,
		Health:     model.MaxHealth,
	})
	f.inventory.fail = errors.New("storage down")

	_, err := f.shop.Buy(ctx, 1, catalog.HealingPotion, 1)
	require.Error(t, err)

	acc := f.accounts.get(1)
	assert.Equal(t, 100*currency.Gold, acc.Balance)
	assert.Equal(t, 10*currency.Gold, acc.Debt)
	assert.Equal(t, &since, acc.DebtSince)
	assert.True(t, acc.Imprisoned)
	assert.Empty(t, f.notifier.released)

	var net int64
	for _, e := range f.accounts.entries(model.TxTypePurchase) {
		net += e.Amount
	}
	assert.Zero(t, net)
}

func TestShop_BuyRejectsHugeQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100*currency.Gold, 0)
	_, err := f.ledger.GetAccount(ctx, 1, "")
	require.NoError(t, err)

	_, err = f.shop.Buy(ctx, 1, "viscount_title", 1317624577)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)
	_, err = f.shop.Buy(ctx, 1, "bread", MaxPurchaseQuantity+1)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)

	assert.Equal(t, 100*currency.Gold, f.accounts.get(1).Balance)
	assert.Empty(t, f.accounts.entries(model.TxTypePurchase))
}

func TestShop_HasRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)

	_, err := f.shop.Has(ctx, 1, "bread", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.shop.Has(ctx, 1, "bread", -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestShop_AddRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)

	require.NoError(t, f.shop.Add(ctx, 1, "bread", 2))
	assert.ErrorIs(t, f.shop.Add(ctx, 1, "excalibur", 1), ErrItemNotFound)

	ok, err := f.shop.Remove(ctx, 1, "bread", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.shop.Remove(ctx, 1, "bread", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	sack, err := f.shop.Sack(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sack)
}

func TestShop_Use(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)
	f.accounts.set(model.Account{UserID: 1, Health: 50})

	_, err := f.shop.Use(ctx, 1, catalog.HealingPotion)
	assert.ErrorIs(t, err, ErrInsufficientItemQuantity)

	require.NoError(t, f.shop.Add(ctx, 1, catalog.HealingPotion, 1))
	res, err := f.shop.Use(ctx, 1, catalog.HealingPotion)
	require.NoError(t, err)
	assert.True(t, res.Consumed)
	assert.Equal(t, 30, res.Healed)
	assert.Equal(t, 80, f.accounts.get(1).Health)

	require.NoError(t, f.shop.Add(ctx, 1, "lantern", 1))
	res, err = f.shop.Use(ctx, 1, "lantern")
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	have, err := f.shop.Has(ctx, 1, "lantern", 1)
	require.NoError(t, err)
	assert.True(t, have)

	require.NoError(t, f.shop.Add(ctx, 1, "baron_title", 1))
	_, err = f.shop.Use(ctx, 1, "baron_title")
	assert.ErrorIs(t, err, ErrNotUsable)
}

func TestShop_EquipOnePerSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)
	require.NoError(t, f.shop.Add(ctx, 1, "chainmail", 1))
	require.NoError(t, f.shop.Add(ctx, 1, "shield", 1))
	require.NoError(t, f.shop.Add(ctx, 1, "dagger", 1))

	_, err := f.shop.Equip(ctx, 1, "bread")
	assert.ErrorIs(t, err, ErrNotEquippable)

	ok, err := f.shop.Equip(ctx, 1, "plate_armor")
	require.NoError(t, err)
	assert.False(t, ok, "cannot equip what is not owned")

	for _, id := range []catalog.ItemID{"chainmail", "dagger", "shield"} {
		ok, err := f.shop.Equip(ctx, 1, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	equipped, err := f.inventory.Equipped(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"dagger", "shield"}, equipped)

	def, err := f.shop.Defense(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, def)

	require.NoError(t, f.shop.Unequip(ctx, 1, "shield"))
	require.NoError(t, f.shop.Unequip(ctx, 1, "shield"))
	def, err = f.shop.Defense(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, def)
}

func TestShop_SackFollowsCatalogOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)
	require.NoError(t, f.shop.Add(ctx, 1, "warhorse", 1))
	require.NoError(t, f.shop.Add(ctx, 1, "bread", 4))
	require.NoError(t, f.inventory.Add(ctx, 1, "retired_item", 1))

	sack, err := f.shop.Sack(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sack, 2)
	assert.Equal(t, catalog.ItemID("bread"), sack[0].Item.ID)
	assert.Equal(t, 4, sack[0].Quantity)
	assert.Equal(t, catalog.ItemID("warhorse"), sack[1].Item.ID)
}

func TestShop_ConsumePotion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0, 0)

	ok, err := f.shop.ConsumePotion(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.shop.Add(ctx, 1, catalog.HealingPotion, 1))
	ok, err = f.shop.ConsumePotion(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
