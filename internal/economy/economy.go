// Package economy holds the pure arithmetic of the ledger: debt-first
// credits, overdrafts into debt, the purse cap, interest, prison thresholds,
// duel spoils, and tax splitting. Nothing here touches storage.
package economy

import (
	"time"

	"github.com/shopspring/decimal"

	"royal-market-bot/internal/model"
)

// Spoils rates applied to the loser's balance when a duel concludes.
var (
	SpoilsDefeatRate = decimal.New(20, -2)
	SpoilsFleeRate   = decimal.New(10, -2)
)

// Result describes what an adjustment did besides changing the numbers.
type Result struct {
	// DebtPaid is the part of a credit that went to debt.
	DebtPaid int64
	// Shortfall is the part of a debit that the balance could not cover and
	// was added to debt.
	Shortfall int64
	// Capped is the part of a credit discarded by the purse cap.
	Capped int64
	// Released is set when debt reached zero while the account was imprisoned.
	// The imprisoned flag has already been cleared on the account.
	Released bool
}

// ApplyDelta adjusts the account by a signed amount.
//
// Credits pay debt first. Debits beyond the balance are added to debt rather
// than rejected, and the balance floors at 0. The balance is capped at
// purseCap afterwards; debt is never capped. DebtSince is set when debt goes
// from zero to positive and cleared when it returns to zero.
func ApplyDelta(acc *model.Account, delta, purseCap int64, now time.Time) Result {
	var res Result

	if delta > 0 && acc.Debt > 0 {
		pay := min(delta, acc.Debt)
		acc.Debt -= pay
		delta -= pay
		res.DebtPaid = pay
	}

	balance := acc.Balance + delta
	if balance < 0 {
		res.Shortfall = -balance
		acc.Debt += res.Shortfall
		balance = 0
	}
	if purseCap > 0 && balance > purseCap {
		res.Capped = balance - purseCap
		balance = purseCap
	}
	acc.Balance = balance

	res.Released = syncDebtSince(acc, now)
	return res
}

// Restore puts amount back into the balance exactly as a reversed debit
// would. Debt is left alone, so an undone purchase never repays it. The
// purse cap still applies.
func Restore(acc *model.Account, amount, purseCap int64) Result {
	var res Result
	balance := acc.Balance + amount
	if purseCap > 0 && balance > purseCap {
		res.Capped = balance - purseCap
		balance = purseCap
	}
	acc.Balance = balance
	return res
}

// SetDebt overrides the debt. Non-positive amounts clear it.
func SetDebt(acc *model.Account, amount int64, now time.Time) Result {
	if amount < 0 {
		amount = 0
	}
	acc.Debt = amount
	return Result{Released: syncDebtSince(acc, now)}
}

// Repay moves up to amount from the balance to the debt. It pays at most
// the outstanding debt and never more than the balance; it returns the
// amount actually paid.
func Repay(acc *model.Account, amount int64, now time.Time) (int64, Result) {
	pay := min(amount, acc.Debt, acc.Balance)
	if pay <= 0 {
		return 0, Result{}
	}
	acc.Balance -= pay
	acc.Debt -= pay
	return pay, Result{DebtPaid: pay, Released: syncDebtSince(acc, now)}
}

// syncDebtSince restores the debt/debt_since invariant and reports whether
// an imprisoned account was released.
func syncDebtSince(acc *model.Account, now time.Time) bool {
	if acc.Debt > 0 {
		if acc.DebtSince == nil {
			t := now
			acc.DebtSince = &t
		}
		return false
	}
	acc.DebtSince = nil
	if acc.Imprisoned {
		acc.Imprisoned = false
		return true
	}
	return false
}

// AccrueInterest returns floor(debt * (1 + rate)).
func AccrueInterest(debt int64, rate decimal.Decimal) int64 {
	if debt <= 0 {
		return debt
	}
	return decimal.NewFromInt(debt).
		Mul(decimal.NewFromInt(1).Add(rate)).
		Floor().
		IntPart()
}

// DaysInDebt counts calendar days between since and now in loc, ignoring the
// time of day: 23:59 on Monday to 00:01 on Tuesday is one day.
func DaysInDebt(since, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return int(dateOf(now, loc).Sub(dateOf(since, loc)).Hours() / 24)
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PrisonDue reports whether the account should be imprisoned now.
// Already imprisoned accounts are never due again.
func PrisonDue(acc *model.Account, now time.Time, thresholdDays int, loc *time.Location) bool {
	if acc.Imprisoned || acc.Debt <= 0 || acc.DebtSince == nil {
		return false
	}
	return DaysInDebt(*acc.DebtSince, now, loc) >= thresholdDays
}

// Spoils returns floor(balance * rate), never negative.
func Spoils(balance int64, rate decimal.Decimal) int64 {
	if balance <= 0 {
		return 0
	}
	return decimal.NewFromInt(balance).Mul(rate).Floor().IntPart()
}

// SplitEvenly divides total among n recipients. The remainder goes one unit
// at a time to the first recipients.
func SplitEvenly(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	shares := make([]int64, n)
	if total <= 0 {
		return shares
	}
	share := total / int64(n)
	remainder := total % int64(n)
	for i := range shares {
		shares[i] = share
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares
}

// ClampHealth applies delta to health within [0, model.MaxHealth].
func ClampHealth(health, delta int) int {
	return max(0, min(model.MaxHealth, health+delta))
}
