// Package catalog provides the Royal Market: the fixed, read-only table of
// items players can buy, equip, and use.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"royal-market-bot/internal/currency"
)

// ItemID is the stable key of a catalog item, e.g. "healing_potion".
type ItemID string

// Well-known items referenced by game logic.
const (
	HealingPotion ItemID = "healing_potion"
)

// Category groups items for display and use rules.
type Category string

const (
	CategoryFood      Category = "food"
	CategoryDrink     Category = "drink"
	CategoryWeapon    Category = "weapon"
	CategoryArmor     Category = "armor"
	CategoryPotion    Category = "potion"
	CategoryMagic     Category = "magic"
	CategoryTool      Category = "tool"
	CategoryLuxury    Category = "luxury"
	CategoryCompanion Category = "companion"
	CategoryMount     Category = "mount"
	CategoryResource  Category = "resource"
	CategoryTitle     Category = "title"
)

// Slot is an equipment slot. The zero value means the item cannot be equipped.
type Slot string

const (
	SlotNone   Slot = ""
	SlotWeapon Slot = "weapon"
	SlotArmor  Slot = "armor"
)

// Effect is the category-specific payload of an item. Exactly one of the
// concrete types below is attached to every item.
type Effect interface {
	effect()
}

// WeaponEffect is carried by weapons.
type WeaponEffect struct {
	Attack int
}

// ArmorEffect is carried by armor.
type ArmorEffect struct {
	Defense int
}

// HealEffect is carried by potions. Amount may be zero.
type HealEffect struct {
	Amount int
}

// ProvisionEffect is carried by food and drink, which are consumed on use.
type ProvisionEffect struct{}

// TitleEffect is carried by purchasable noble titles.
type TitleEffect struct {
	Rank string
}

// TrinketEffect is carried by everything else: owned, shown, never consumed.
type TrinketEffect struct{}

func (WeaponEffect) effect()    {}
func (ArmorEffect) effect()     {}
func (HealEffect) effect()      {}
func (ProvisionEffect) effect() {}
func (TitleEffect) effect()     {}
func (TrinketEffect) effect()   {}

// Item is a single catalog entry.
type Item struct {
	ID          ItemID
	Name        string
	Price       int64 // copper
	Category    Category
	Description string
	Use         string
	Effect      Effect
}

// Slot reports which equipment slot the item occupies.
func (i Item) Slot() Slot {
	switch i.Effect.(type) {
	case WeaponEffect:
		return SlotWeapon
	case ArmorEffect:
		return SlotArmor
	default:
		return SlotNone
	}
}

// Equippable reports whether the item can be equipped.
func (i Item) Equippable() bool {
	return i.Slot() != SlotNone
}

// AttackBonus returns the weapon attack bonus, or 0.
func (i Item) AttackBonus() int {
	if e, ok := i.Effect.(WeaponEffect); ok {
		return e.Attack
	}
	return 0
}

// DefenseBonus returns the armor defense bonus, or 0.
func (i Item) DefenseBonus() int {
	if e, ok := i.Effect.(ArmorEffect); ok {
		return e.Defense
	}
	return 0
}

// HealAmount returns the heal value of a potion, or 0.
func (i Item) HealAmount() int {
	if e, ok := i.Effect.(HealEffect); ok {
		return e.Amount
	}
	return 0
}

// Consumable reports whether using the item removes it from the inventory.
func (i Item) Consumable() bool {
	switch i.Effect.(type) {
	case HealEffect, ProvisionEffect:
		return true
	default:
		return false
	}
}

// IsTitle reports whether the item is a noble title.
func (i Item) IsTitle() bool {
	_, ok := i.Effect.(TitleEffect)
	return ok
}

// Catalog is an immutable item table. It is safe for concurrent reads.
type Catalog struct {
	items map[ItemID]Item
	order []ItemID
}

// New builds a catalog from the given items, preserving their order.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make(map[ItemID]Item, len(items)),
		order: make([]ItemID, 0, len(items)),
	}
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog item has empty id")
		}
		if it.Effect == nil {
			return nil, fmt.Errorf("catalog item %q has no effect", it.ID)
		}
		if it.Price <= 0 {
			return nil, fmt.Errorf("catalog item %q has non-positive price", it.ID)
		}
		if _, dup := c.items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog item %q", it.ID)
		}
		c.items[it.ID] = it
		c.order = append(c.order, it.ID)
	}
	return c, nil
}

// Get returns the item with the given id.
func (c *Catalog) Get(id ItemID) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Lookup resolves a player-typed name ("Healing Potion", "healing_potion").
func (c *Catalog) Lookup(name string) (Item, bool) {
	return c.Get(Normalize(name))
}

// Suggest returns ids whose key or display name contains the query, sorted.
func (c *Catalog) Suggest(query string) []ItemID {
	key := string(Normalize(query))
	if key == "" {
		return nil
	}
	plain := strings.ReplaceAll(key, "_", " ")
	var out []ItemID
	for _, id := range c.order {
		it := c.items[id]
		if strings.Contains(string(id), key) || strings.Contains(strings.ToLower(it.Name), plain) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every item in display order.
func (c *Catalog) All() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Filter returns the items matching keep, in display order.
func (c *Catalog) Filter(keep func(Item) bool) []Item {
	var out []Item
	for _, id := range c.order {
		if it := c.items[id]; keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Wares returns everything except titles.
func (c *Catalog) Wares() []Item {
	return c.Filter(func(it Item) bool { return !it.IsTitle() })
}

// Titles returns only noble titles.
func (c *Catalog) Titles() []Item {
	return c.Filter(Item.IsTitle)
}

// Normalize converts a display name into an item id.
func Normalize(name string) ItemID {
	fields := strings.Fields(strings.ToLower(name))
	return ItemID(strings.Join(fields, "_"))
}

// Page returns one page of items and the total page count. Pages are 0-based
// and clamped into range.
func Page(items []Item, page, perPage int) ([]Item, int, int) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	total := (len(items) + perPage - 1) / perPage
	if total == 0 {
		return nil, 0, 0
	}
	if page < 0 {
		page = 0
	}
	if page >= total {
		page = total - 1
	}
	start := page * perPage
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page, total
}

// DefaultPageSize is the number of wares shown per market page.
const DefaultPageSize = 8

func gold(n int64) int64 { return n * currency.Gold }

// Default returns the Royal Market.
func Default() *Catalog {
	c, err := New(royalMarket)
	if err != nil {
		panic(err)
	}
	return c
}

var royalMarket = []Item{
	// Provisions
	{ID: "bread", Name: "Bread", Price: gold(1), Category: CategoryFood, Description: "A hearty loaf to fill a peasant's belly", Use: "Restores vigor", Effect: ProvisionEffect{}},
	{ID: "ale", Name: "Ale", Price: gold(1), Category: CategoryDrink, Description: "Foaming tankard of barley brew", Use: "Cheers the spirit", Effect: ProvisionEffect{}},
	{ID: "cheese", Name: "Cheese", Price: gold(1), Category: CategoryFood, Description: "Wheel of aged goat cheese", Use: "Sustains on long journeys", Effect: ProvisionEffect{}},
	{ID: "roast_chicken", Name: "Roast Chicken", Price: gold(2), Category: CategoryFood, Description: "Whole roasted fowl with herbs", Use: "Feasts the hungry", Effect: ProvisionEffect{}},
	{ID: "mead", Name: "Mead", Price: gold(1), Category: CategoryDrink, Description: "Honey wine of the northlands", Use: "Warms the bones", Effect: ProvisionEffect{}},

	// Weapons
	{ID: "dagger", Name: "Dagger", Price: gold(25), Category: CategoryWeapon, Description: "Small blade for close encounters", Use: "+2 attack", Effect: WeaponEffect{Attack: 2}},
	{ID: "shortsword", Name: "Shortsword", Price: gold(50), Category: CategoryWeapon, Description: "Reliable blade for any fighter", Use: "+3 attack", Effect: WeaponEffect{Attack: 3}},
	{ID: "longbow", Name: "Longbow", Price: gold(40), Category: CategoryWeapon, Description: "Yew bow with quiver of arrows", Use: "+4 attack", Effect: WeaponEffect{Attack: 4}},
	{ID: "battleaxe", Name: "Battleaxe", Price: gold(75), Category: CategoryWeapon, Description: "Heavy axe for strong warriors", Use: "+5 attack", Effect: WeaponEffect{Attack: 5}},
	{ID: "warhammer", Name: "Warhammer", Price: gold(65), Category: CategoryWeapon, Description: "Crushing weapon of knights", Use: "+5 attack", Effect: WeaponEffect{Attack: 5}},

	// Armor
	{ID: "leather_armor", Name: "Leather Armor", Price: gold(45), Category: CategoryArmor, Description: "Light protection for travelers", Use: "+2 defense", Effect: ArmorEffect{Defense: 2}},
	{ID: "chainmail", Name: "Chainmail", Price: gold(90), Category: CategoryArmor, Description: "Interlocking metal rings", Use: "+5 defense", Effect: ArmorEffect{Defense: 5}},
	{ID: "plate_armor", Name: "Plate Armor", Price: gold(200), Category: CategoryArmor, Description: "Full steel plate of knights", Use: "+8 defense", Effect: ArmorEffect{Defense: 8}},
	{ID: "shield", Name: "Shield", Price: gold(30), Category: CategoryArmor, Description: "Wooden shield with iron boss", Use: "+3 defense", Effect: ArmorEffect{Defense: 3}},
	{ID: "helmet", Name: "Helmet", Price: gold(25), Category: CategoryArmor, Description: "Steel helmet with nasal guard", Use: "+2 defense", Effect: ArmorEffect{Defense: 2}},

	// Potions and magic
	{ID: HealingPotion, Name: "Healing Potion", Price: gold(15), Category: CategoryPotion, Description: "Restores vitality in dire times", Use: "Heals 30 HP", Effect: HealEffect{Amount: 30}},
	{ID: "mana_potion", Name: "Mana Potion", Price: gold(20), Category: CategoryPotion, Description: "Restores magical energy", Use: "Refreshes spells", Effect: HealEffect{Amount: 0}},
	{ID: "enchanted_ring", Name: "Enchanted Ring", Price: gold(500), Category: CategoryMagic, Description: "Magical ring with unknown powers", Use: "Mystical aura", Effect: TrinketEffect{}},
	{ID: "crystal_ball", Name: "Crystal Ball", Price: gold(300), Category: CategoryMagic, Description: "For fortune telling and scrying", Use: "See future", Effect: TrinketEffect{}},
	{ID: "phoenix_feather", Name: "Phoenix Feather", Price: gold(1000), Category: CategoryMagic, Description: "Legendary feather with magic", Use: "Rebirth chance", Effect: TrinketEffect{}},

	// Tools
	{ID: "lantern", Name: "Lantern", Price: gold(8), Category: CategoryTool, Description: "Light for dark dungeons", Use: "Illuminates darkness", Effect: TrinketEffect{}},
	{ID: "rope", Name: "Rope", Price: gold(2), Category: CategoryTool, Description: "Strong hemp rope, 50 feet", Use: "Climbing aid", Effect: TrinketEffect{}},
	{ID: "lockpicks", Name: "Lockpicks", Price: gold(20), Category: CategoryTool, Description: "Tools for discreet entry", Use: "Opens locks", Effect: TrinketEffect{}},
	{ID: "spyglass", Name: "Spyglass", Price: gold(35), Category: CategoryTool, Description: "See distant lands and foes", Use: "Long vision", Effect: TrinketEffect{}},
	{ID: "map", Name: "Map", Price: gold(5), Category: CategoryTool, Description: "Chart of surrounding lands", Use: "Navigation aid", Effect: TrinketEffect{}},

	// Luxuries
	{ID: "golden_goblet", Name: "Golden Goblet", Price: gold(500), Category: CategoryLuxury, Description: "Gilded cup for showing riches", Use: "Impression +5", Effect: TrinketEffect{}},
	{ID: "silver_locket", Name: "Silver Locket", Price: gold(30), Category: CategoryLuxury, Description: "Ornate locket with compartment", Use: "Stores secrets", Effect: TrinketEffect{}},
	{ID: "royal_seal", Name: "Royal Seal", Price: gold(1000), Category: CategoryLuxury, Description: "Official seal of kingdom", Use: "Authority symbol", Effect: TrinketEffect{}},
	{ID: "chess_set", Name: "Chess Set", Price: gold(15), Category: CategoryLuxury, Description: "Royal game of strategy", Use: "Intelligence +3", Effect: TrinketEffect{}},
	{ID: "silver_flute", Name: "Silver Flute", Price: gold(25), Category: CategoryLuxury, Description: "Musical instrument for bards", Use: "Charisma +4", Effect: TrinketEffect{}},

	// Companions and mounts
	{ID: "hunting_hound", Name: "Hunting Hound", Price: gold(50), Category: CategoryCompanion, Description: "Loyal beast for the trail", Use: "Tracking aid", Effect: TrinketEffect{}},
	{ID: "falcon", Name: "Falcon", Price: gold(60), Category: CategoryCompanion, Description: "Noble bird for hunting", Use: "Scouting eyes", Effect: TrinketEffect{}},
	{ID: "warhorse", Name: "Warhorse", Price: gold(100), Category: CategoryMount, Description: "Sturdy steed for battle", Use: "Speed +10", Effect: TrinketEffect{}},
	{ID: "pack_mule", Name: "Pack Mule", Price: gold(40), Category: CategoryMount, Description: "Beast of burden for goods", Use: "Carry capacity +50", Effect: TrinketEffect{}},

	// Resources
	{ID: "iron_ore", Name: "Iron Ore", Price: gold(2), Category: CategoryResource, Description: "Unrefined iron from mines", Use: "Crafting material", Effect: TrinketEffect{}},
	{ID: "herbs", Name: "Herbs", Price: gold(5), Category: CategoryResource, Description: "Medicinal herbs for healing", Use: "Potion ingredient", Effect: TrinketEffect{}},
	{ID: "furs", Name: "Furs", Price: gold(8), Category: CategoryResource, Description: "Warm pelts from forest", Use: "Clothing material", Effect: TrinketEffect{}},
	{ID: "gemstones", Name: "Gemstones", Price: gold(50), Category: CategoryResource, Description: "Precious stones for trade", Use: "High value trade", Effect: TrinketEffect{}},

	// Titles
	{ID: "baron_title", Name: "Baron Title", Price: gold(100000), Category: CategoryTitle, Description: "Noble title of Baron", Use: "Grants noble privileges", Effect: TitleEffect{Rank: "Baron"}},
	{ID: "viscount_title", Name: "Viscount Title", Price: gold(700000), Category: CategoryTitle, Description: "Noble title of Viscount", Use: "Grants higher noble privileges", Effect: TitleEffect{Rank: "Viscount"}},
}
