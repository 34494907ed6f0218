package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royal-market-bot/internal/currency"
)

func TestDefault_Integrity(t *testing.T) {
	c := Default()
	all := c.All()
	require.NotEmpty(t, all)

	for _, it := range all {
		assert.NotEmpty(t, it.Name, it.ID)
		assert.Positive(t, it.Price, it.ID)
		assert.NotNil(t, it.Effect, it.ID)

		switch it.Category {
		case CategoryWeapon:
			assert.Equal(t, SlotWeapon, it.Slot(), it.ID)
			assert.Positive(t, it.AttackBonus(), it.ID)
		case CategoryArmor:
			assert.Equal(t, SlotArmor, it.Slot(), it.ID)
			assert.Positive(t, it.DefenseBonus(), it.ID)
		default:
			assert.False(t, it.Equippable(), it.ID)
		}
	}
}

func TestItem_Effects(t *testing.T) {
	c := Default()

	potion, ok := c.Get(HealingPotion)
	require.True(t, ok)
	assert.Equal(t, 30, potion.HealAmount())
	assert.True(t, potion.Consumable())
	assert.Equal(t, 15*currency.Gold, potion.Price)

	chain, ok := c.Get("chainmail")
	require.True(t, ok)
	assert.Equal(t, 5, chain.DefenseBonus())
	assert.Equal(t, 0, chain.AttackBonus())
	assert.False(t, chain.Consumable())

	bread, ok := c.Get("bread")
	require.True(t, ok)
	assert.True(t, bread.Consumable())
	assert.Equal(t, 0, bread.HealAmount())

	ring, ok := c.Get("enchanted_ring")
	require.True(t, ok)
	assert.False(t, ring.Consumable())
	assert.False(t, ring.Equippable())

	baron, ok := c.Get("baron_title")
	require.True(t, ok)
	assert.True(t, baron.IsTitle())
}

func TestCatalog_Lookup(t *testing.T) {
	c := Default()

	it, ok := c.Lookup("Healing Potion")
	require.True(t, ok)
	assert.Equal(t, HealingPotion, it.ID)

	it, ok = c.Lookup("  plate   ARMOR ")
	require.True(t, ok)
	assert.Equal(t, ItemID("plate_armor"), it.ID)

	_, ok = c.Lookup("excalibur")
	assert.False(t, ok)
}

func TestCatalog_Suggest(t *testing.T) {
	c := Default()
	assert.Equal(t, []ItemID{"healing_potion", "mana_potion"}, c.Suggest("potion"))
	assert.Empty(t, c.Suggest("excalibur"))
	assert.Empty(t, c.Suggest(""))
}

func TestCatalog_WaresAndTitles(t *testing.T) {
	c := Default()
	titles := c.Titles()
	require.Len(t, titles, 2)
	for _, it := range c.Wares() {
		assert.False(t, it.IsTitle(), it.ID)
	}
	assert.Equal(t, len(c.All()), len(c.Wares())+len(titles))
}

func TestNew_Rejects(t *testing.T) {
	_, err := New([]Item{{ID: "a", Name: "A", Price: 1, Effect: TrinketEffect{}}, {ID: "a", Name: "A", Price: 1, Effect: TrinketEffect{}}})
	assert.Error(t, err)

	_, err = New([]Item{{ID: "a", Name: "A", Price: 1}})
	assert.Error(t, err)

	_, err = New([]Item{{ID: "a", Name: "A", Price: 0, Effect: TrinketEffect{}}})
	assert.Error(t, err)

	_, err = New([]Item{{Name: "A", Price: 1, Effect: TrinketEffect{}}})
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	items := Default().Wares()

	first, page, total := Page(items, 0, 8)
	assert.Len(t, first, 8)
	assert.Equal(t, 0, page)
	assert.Equal(t, (len(items)+7)/8, total)

	last, page, _ := Page(items, 99, 8)
	assert.Equal(t, total-1, page)
	assert.NotEmpty(t, last)
	assert.LessOrEqual(t, len(last), 8)

	_, page, _ = Page(items, -3, 8)
	assert.Equal(t, 0, page)

	none, _, total := Page(nil, 0, 8)
	assert.Nil(t, none)
	assert.Equal(t, 0, total)
}
