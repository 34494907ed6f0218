package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"royal-market-bot/internal/catalog"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/lock"
	"royal-market-bot/internal/repository"
)

// memAccounts is an in-memory AccountStore with the same all-or-nothing
// semantics as the repository.
type memAccounts struct {
	mu           sync.Mutex
	startBalance int64
	accounts     map[int64]*model.Account
	journal      []model.Transaction
}

func newMemAccounts(startBalance int64) *memAccounts {
	return &memAccounts{startBalance: startBalance, accounts: map[int64]*model.Account{}}
}

func (m *memAccounts) ensure(id int64, username string) (*model.Account, bool) {
	if acc, ok := m.accounts[id]; ok {
		if username != "" {
			acc.Username = username
		}
		return acc, false
	}
	acc := &model.Account{UserID: id, Username: username, Balance: m.startBalance, Health: model.MaxHealth}
	m.accounts[id] = acc
	return acc, true
}

func (m *memAccounts) GetOrCreate(_ context.Context, id int64, username string) (*model.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, created := m.ensure(id, username)
	c := *acc
	return &c, created, nil
}

func (m *memAccounts) UpdateMany(_ context.Context, ids []int64, fn repository.AccountMutation) (map[int64]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := make(map[int64]*model.Account, len(ids))
	for _, id := range ids {
		acc, _ := m.ensure(id, "")
		c := *acc
		work[id] = &c
	}
	txs, err := fn(work)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*model.Account, len(work))
	for id, acc := range work {
		stored := *acc
		m.accounts[id] = &stored
		c := stored
		out[id] = &c
	}
	m.journal = append(m.journal, txs...)
	return out, nil
}

func (m *memAccounts) ListIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *memAccounts) ListDebtorIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, acc := range m.accounts {
		if acc.Debt > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *memAccounts) top(less func(a, b *model.Account) bool, keep func(*model.Account) bool, limit int) []*model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	for _, acc := range m.accounts {
		if keep(acc) {
			c := *acc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memAccounts) TopBalances(_ context.Context, limit int) ([]*model.Account, error) {
	return m.top(func(a, b *model.Account) bool { return a.Balance > b.Balance },
		func(*model.Account) bool { return true }, limit), nil
}

func (m *memAccounts) TopDebtors(_ context.Context, limit int) ([]*model.Account, error) {
	return m.top(func(a, b *model.Account) bool { return a.Debt > b.Debt },
		func(a *model.Account) bool { return a.Debt > 0 }, limit), nil
}

// set replaces an account for test setup.
func (m *memAccounts) set(acc model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.UserID] = &acc
}

func (m *memAccounts) get(id int64) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *memAccounts) entries(txType string) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, t := range m.journal {
		if t.Type == txType {
			out = append(out, t)
		}
	}
	return out
}

type memInventory struct {
	mu    sync.Mutex
	items map[int64]map[string]*model.InventoryEntry
	fail  error
}

func newMemInventory() *memInventory {
	return &memInventory{items: map[int64]map[string]*model.InventoryEntry{}}
}

func (m *memInventory) Add(_ context.Context, userID int64, itemID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if m.items[userID] == nil {
		m.items[userID] = map[string]*model.InventoryEntry{}
	}
	e, ok := m.items[userID][itemID]
	if !ok {
		e = &model.InventoryEntry{UserID: userID, ItemID: itemID}
		m.items[userID][itemID] = e
	}
	e.Quantity += qty
	return nil
}

func (m *memInventory) Remove(_ context.Context, userID int64, itemID string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[userID][itemID]
	if !ok || e.Quantity < qty {
		return false, nil
	}
	e.Quantity -= qty
	if e.Quantity == 0 {
		delete(m.items[userID], itemID)
	}
	return true, nil
}

func (m *memInventory) Quantity(_ context.Context, userID int64, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[userID][itemID]; ok {
		return e.Quantity, nil
	}
	return 0, nil
}

func (m *memInventory) List(_ context.Context, userID int64) ([]model.InventoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.InventoryEntry
	for _, e := range m.items[userID] {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memInventory) Equip(_ context.Context, userID int64, itemID string, sameSlot []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.items[userID][itemID]
	if !ok {
		return false, nil
	}
	for _, id := range sameSlot {
		if e, ok := m.items[userID][id]; ok {
			e.Equipped = false
		}
	}
	target.Equipped = true
	return true, nil
}

func (m *memInventory) Unequip(_ context.Context, userID int64, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[userID][itemID]; ok {
		e.Equipped = false
	}
	return nil
}

func (m *memInventory) Equipped(_ context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, e := range m.items[userID] {
		if e.Equipped {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

type cooldownKey struct {
	user int64
	kind model.CooldownKind
}

type memCooldowns struct {
	mu   sync.Mutex
	last map[cooldownKey]time.Time
}

func newMemCooldowns() *memCooldowns {
	return &memCooldowns{last: map[cooldownKey]time.Time{}}
}

func (m *memCooldowns) Get(_ context.Context, userID int64, kind model.CooldownKind) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[cooldownKey{userID, kind}]
	return t, ok, nil
}

func (m *memCooldowns) Mark(_ context.Context, userID int64, kind model.CooldownKind, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[cooldownKey{userID, kind}] = at
	return nil
}

type memStats struct {
	mu    sync.Mutex
	stats map[int64]*model.DuelStats
}

func newMemStats() *memStats {
	return &memStats{stats: map[int64]*model.DuelStats{}}
}

func (m *memStats) entry(id int64) *model.DuelStats {
	s, ok := m.stats[id]
	if !ok {
		s = &model.DuelStats{UserID: id}
		m.stats[id] = s
	}
	return s
}

func (m *memStats) RecordDuel(_ context.Context, userID int64, won bool, damage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(userID)
	if won {
		s.Wins++
	} else {
		s.Losses++
	}
	s.DamageDealt += damage
	s.DuelsFought++
	return nil
}

func (m *memStats) RecordDraw(_ context.Context, userID int64, damage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(userID)
	s.DamageDealt += damage
	s.DuelsFought++
	return nil
}

func (m *memStats) Get(_ context.Context, userID int64) (*model.DuelStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.entry(userID)
	return &c, nil
}

func (m *memStats) Top(_ context.Context, limit int) ([]*model.DuelStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DuelStats
	for _, s := range m.stats {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	imprisoned []int64
	released   []int64
}

func (n *recordingNotifier) Imprisoned(_ context.Context, acc *model.Account, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.imprisoned = append(n.imprisoned, acc.UserID)
}

func (n *recordingNotifier) Released(_ context.Context, acc *model.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.released = append(n.released, acc.UserID)
}

// fixture wires every service over in-memory stores.
type fixture struct {
	accounts  *memAccounts
	inventory *memInventory
	cooldowns *memCooldowns
	stats     *memStats
	notifier  *recordingNotifier
	ledger    *LedgerService
	shop      *ShopService
	cooldown  *CooldownService
	clock     time.Time
}

func newFixture(startBalance, purseCap int64) *fixture {
	f := &fixture{
		accounts:  newMemAccounts(startBalance),
		inventory: newMemInventory(),
		cooldowns: newMemCooldowns(),
		stats:     newMemStats(),
		notifier:  &recordingNotifier{},
		clock:     time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.ledger = NewLedgerService(f.accounts, lock.NewUserLock(), LedgerConfig{
		PurseCap:     purseCap,
		InterestRate: testRate,
		PrisonDays:   3,
	})
	f.ledger.now = f.now
	f.ledger.SetNotifier(f.notifier)
	f.shop = NewShopService(f.inventory, f.ledger, catalog.Default())
	f.cooldown = NewCooldownService(f.cooldowns, func(kind model.CooldownKind) time.Duration {
		switch kind {
		case model.CooldownLabour, model.CooldownDuel:
			return time.Hour
		case model.CooldownDaily:
			return 24 * time.Hour
		}
		return 0
	})
	f.cooldown.now = f.now
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }
