// Package model defines the data models for the royal market bot.
package model

import "time"

// MaxHealth is the ceiling for both account vitality and duel health.
const MaxHealth = 100

// Account is one actor's ledger row. Balance and Debt are in copper.
// Invariant: Debt > 0 if and only if DebtSince != nil.
type Account struct {
	UserID     int64      `db:"user_id"`
	Username   string     `db:"username"`
	Balance    int64      `db:"balance"`
	Debt       int64      `db:"debt"`
	DebtSince  *time.Time `db:"debt_since"`
	Health     int        `db:"health"`
	Imprisoned bool       `db:"imprisoned"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// InDebt reports whether the account owes anything.
func (a *Account) InDebt() bool {
	return a.Debt > 0
}

// InventoryEntry is a stack of one catalog item owned by an actor.
// Rows with zero quantity do not exist.
type InventoryEntry struct {
	UserID    int64     `db:"user_id"`
	ItemID    string    `db:"item_id"`
	Quantity  int       `db:"quantity"`
	Equipped  bool      `db:"equipped"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CooldownKind names an action gated by a cooldown.
type CooldownKind string

// Tracked cooldown kinds. Gambling is not tracked.
const (
	CooldownLabour CooldownKind = "labour"
	CooldownDaily  CooldownKind = "daily"
	CooldownDuel   CooldownKind = "duel"
)

// DuelStats is the durable win/loss record of an actor.
type DuelStats struct {
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	Wins        int       `db:"wins"`
	Losses      int       `db:"losses"`
	DamageDealt int       `db:"damage_dealt"`
	DuelsFought int       `db:"duels_fought"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial   = "initial"    // Starting purse on account creation
	TxTypeDaily     = "daily"      // Daily stipend
	TxTypeLabour    = "labour"     // Honest labour
	TxTypeTransfer  = "transfer"   // Player-to-player payment
	TxTypeGamble    = "gamble"     // Dice against the house
	TxTypeSlots     = "slots"      // Slot machine
	TxTypeCoinflip  = "coinflip"   // Coin flip
	TxTypePurchase  = "purchase"   // Market purchase
	TxTypeDebtPay   = "debt_pay"   // Debt repayment
	TxTypeInterest  = "interest"   // Debt interest accrual
	TxTypeTax       = "tax"        // Royal tax levied
	TxTypeTaxShare  = "tax_share"  // Royal tax distributed to collectors
	TxTypeDuelWin   = "duel_win"   // Duel spoils received
	TxTypeDuelLose  = "duel_lose"  // Duel spoils paid
	TxTypeAdminTake = "admin_take" // Admin confiscation
	TxTypeAdminAdd  = "admin_add"  // Admin grant
	TxTypeAdminDebt = "admin_debt" // Admin debt override
)

// GameTransactionTypes returns the transaction types that count as gambling.
func GameTransactionTypes() []string {
	return []string{TxTypeGamble, TxTypeSlots, TxTypeCoinflip}
}

// DailyRank is one actor's net gambling result for a day.
type DailyRank struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	NetProfit int64  `db:"net_profit"`
}
