// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"royal-market-bot/internal/economy"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/lock"
	"royal-market-bot/internal/repository"
)

// Ledger errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount: must be positive")
	ErrSelfTransfer      = errors.New("cannot transfer to self")
	ErrNoDebt            = errors.New("no outstanding debt")
	ErrImprisoned        = errors.New("account is imprisoned")
)

// AccountStore is the persistence the ledger needs.
type AccountStore interface {
	GetOrCreate(ctx context.Context, userID int64, username string) (*model.Account, bool, error)
	UpdateMany(ctx context.Context, userIDs []int64, fn repository.AccountMutation) (map[int64]*model.Account, error)
	ListIDs(ctx context.Context) ([]int64, error)
	ListDebtorIDs(ctx context.Context) ([]int64, error)
	TopBalances(ctx context.Context, limit int) ([]*model.Account, error)
	TopDebtors(ctx context.Context, limit int) ([]*model.Account, error)
}

// Notifier is told about prison transitions.
type Notifier interface {
	Imprisoned(ctx context.Context, acc *model.Account, days int)
	Released(ctx context.Context, acc *model.Account)
}

type nopNotifier struct{}

func (nopNotifier) Imprisoned(context.Context, *model.Account, int) {}
func (nopNotifier) Released(context.Context, *model.Account)        {}

// LedgerConfig holds the economic rules the ledger enforces.
type LedgerConfig struct {
	PurseCap     int64
	InterestRate decimal.Decimal
	PrisonDays   int
	Location     *time.Location
	// LockTimeout bounds the wait for a busy account. Zero waits as long
	// as the caller's context allows.
	LockTimeout time.Duration
}

// LedgerService owns every balance, debt, and health change.
//
// No ledger operation fails because the balance is too small: debits past
// zero become debt. Operations with a hard floor say so explicitly.
type LedgerService struct {
	accounts AccountStore
	locks    *lock.UserLock
	notifier Notifier
	cfg      LedgerConfig
	now      func() time.Time
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(accounts AccountStore, locks *lock.UserLock, cfg LedgerConfig) *LedgerService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &LedgerService{
		accounts: accounts,
		locks:    locks,
		notifier: nopNotifier{},
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetNotifier installs the receiver of prison notifications.
func (s *LedgerService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// GetAccount returns the account, creating it with the starting purse.
// A non-empty username refreshes the stored display name.
func (s *LedgerService) GetAccount(ctx context.Context, userID int64, username string) (*model.Account, error) {
	acc, created, err := s.accounts.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if created {
		log.Info().Int64("user_id", userID).Str("username", username).Msg("Account opened")
	}
	return acc, nil
}

// lock takes the in-process locks of every given account, giving up after
// LockTimeout or when ctx ends.
func (s *LedgerService) lock(ctx context.Context, userIDs ...int64) (func(), error) {
	if s.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LockTimeout)
		defer cancel()
	}
	unlock, err := s.locks.LockMany(ctx, userIDs...)
	if err != nil {
		return nil, fmt.Errorf("account busy: %w", err)
	}
	return unlock, nil
}

// update locks one account in process and in the database and applies fn.
func (s *LedgerService) update(ctx context.Context, userID int64, fn func(acc *model.Account) ([]model.Transaction, error)) (*model.Account, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	accounts, err := s.accounts.UpdateMany(ctx, []int64{userID}, func(accs map[int64]*model.Account) ([]model.Transaction, error) {
		return fn(accs[userID])
	})
	if err != nil {
		return nil, err
	}
	return accounts[userID], nil
}

func entry(userID, amount int64, txType, desc string) model.Transaction {
	t := model.Transaction{UserID: userID, Amount: amount, Type: txType}
	if desc != "" {
		t.Description = &desc
	}
	return t
}

// AdjustBalance applies a signed delta. Credits pay debt first, debits past
// the balance become debt, and the balance is capped afterwards.
func (s *LedgerService) AdjustBalance(ctx context.Context, userID, delta int64, txType, desc string) (*model.Account, economy.Result, error) {
	var res economy.Result
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		res = economy.ApplyDelta(acc, delta, s.cfg.PurseCap, s.now())
		return []model.Transaction{entry(userID, delta, txType, desc)}, nil
	})
	if err != nil {
		return nil, economy.Result{}, fmt.Errorf("failed to adjust balance: %w", err)
	}
	s.afterChange(ctx, acc, res)
	return acc, res, nil
}

// Debit takes amount from the balance only if the balance covers it.
// Returns ErrInsufficientFunds otherwise, leaving the account untouched.
func (s *LedgerService) Debit(ctx context.Context, userID, amount int64, txType, desc string) (*model.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		if acc.Balance < amount {
			return nil, ErrInsufficientFunds
		}
		economy.ApplyDelta(acc, -amount, s.cfg.PurseCap, s.now())
		return []model.Transaction{entry(userID, -amount, txType, desc)}, nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit: %w", err)
	}
	return acc, nil
}

// Refund reverses a Debit that could not be completed. The amount goes back
// to the balance only; debt and prison are untouched.
func (s *LedgerService) Refund(ctx context.Context, userID, amount int64, txType, desc string) (*model.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		economy.Restore(acc, amount, s.cfg.PurseCap)
		return []model.Transaction{entry(userID, amount, txType, desc)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refund: %w", err)
	}
	return acc, nil
}

// Wager settles a bet against the house. The balance must cover stake;
// payout is the signed net result.
func (s *LedgerService) Wager(ctx context.Context, userID, stake, payout int64, txType, desc string) (*model.Account, error) {
	if stake <= 0 {
		return nil, ErrInvalidAmount
	}
	var res economy.Result
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		if acc.Balance < stake {
			return nil, ErrInsufficientFunds
		}
		res = economy.ApplyDelta(acc, payout, s.cfg.PurseCap, s.now())
		if payout == 0 {
			return nil, nil
		}
		return []model.Transaction{entry(userID, payout, txType, desc)}, nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to settle wager: %w", err)
	}
	s.afterChange(ctx, acc, res)
	return acc, nil
}

// SetDebt overrides the debt, keeping debt_since consistent. Amounts <= 0
// clear it and release a prisoner.
func (s *LedgerService) SetDebt(ctx context.Context, userID, amount int64) (*model.Account, error) {
	var res economy.Result
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		before := acc.Debt
		res = economy.SetDebt(acc, amount, s.now())
		return []model.Transaction{entry(userID, before-acc.Debt, model.TxTypeAdminDebt, "debt set by the crown")}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set debt: %w", err)
	}
	s.afterChange(ctx, acc, res)
	return acc, nil
}

// RepayDebt pays debt from the balance. With all set, it pays as much as the
// balance allows; otherwise amount must be positive and covered by the
// balance, and is clamped to the debt. It returns the amount paid.
func (s *LedgerService) RepayDebt(ctx context.Context, userID, amount int64, all bool) (int64, *model.Account, error) {
	if !all && amount <= 0 {
		return 0, nil, ErrInvalidAmount
	}

	var (
		paid int64
		res  economy.Result
	)
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		if acc.Debt == 0 {
			return nil, ErrNoDebt
		}
		want := amount
		if all {
			want = acc.Debt
		}
		if acc.Balance == 0 || (!all && amount > acc.Balance) {
			return nil, ErrInsufficientFunds
		}
		paid, res = economy.Repay(acc, want, s.now())
		return []model.Transaction{entry(userID, -paid, model.TxTypeDebtPay, "debt repaid")}, nil
	})
	if err != nil {
		if errors.Is(err, ErrNoDebt) || errors.Is(err, ErrInsufficientFunds) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("failed to repay debt: %w", err)
	}
	s.afterChange(ctx, acc, res)
	return paid, acc, nil
}

// Transfer moves amount between two accounts atomically. The sender's
// balance must cover it; the receiver's debt is paid first.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID, amount int64, note string) (*model.Account, *model.Account, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if fromID == toID {
		return nil, nil, ErrSelfTransfer
	}

	unlock, err := s.lock(ctx, fromID, toID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	var received economy.Result
	accounts, err := s.accounts.UpdateMany(ctx, []int64{fromID, toID}, func(accs map[int64]*model.Account) ([]model.Transaction, error) {
		from, to := accs[fromID], accs[toID]
		if from.Balance < amount {
			return nil, ErrInsufficientFunds
		}
		now := s.now()
		economy.ApplyDelta(from, -amount, s.cfg.PurseCap, now)
		received = economy.ApplyDelta(to, amount, s.cfg.PurseCap, now)

		sent := fmt.Sprintf("payment to %d", toID)
		got := fmt.Sprintf("payment from %d", fromID)
		if note != "" {
			sent += ": " + note
			got += ": " + note
		}
		return []model.Transaction{
			entry(fromID, -amount, model.TxTypeTransfer, sent),
			entry(toID, amount, model.TxTypeTransfer, got),
		}, nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to transfer: %w", err)
	}

	s.afterChange(ctx, accounts[toID], received)
	return accounts[fromID], accounts[toID], nil
}

// TransferSpoils moves floor(loser balance × rate) from loser to winner,
// computed from the balance at the moment of settlement. It returns the
// amount moved.
func (s *LedgerService) TransferSpoils(ctx context.Context, loserID, winnerID int64, rate decimal.Decimal) (int64, error) {
	if loserID == winnerID {
		return 0, ErrSelfTransfer
	}

	unlock, err := s.lock(ctx, loserID, winnerID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	var (
		spoils   int64
		received economy.Result
	)
	accounts, err := s.accounts.UpdateMany(ctx, []int64{loserID, winnerID}, func(accs map[int64]*model.Account) ([]model.Transaction, error) {
		spoils = economy.Spoils(accs[loserID].Balance, rate)
		if spoils == 0 {
			return nil, nil
		}
		now := s.now()
		economy.ApplyDelta(accs[loserID], -spoils, s.cfg.PurseCap, now)
		received = economy.ApplyDelta(accs[winnerID], spoils, s.cfg.PurseCap, now)
		return []model.Transaction{
			entry(loserID, -spoils, model.TxTypeDuelLose, fmt.Sprintf("spoils lost to %d", winnerID)),
			entry(winnerID, spoils, model.TxTypeDuelWin, fmt.Sprintf("spoils won from %d", loserID)),
		}, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to transfer spoils: %w", err)
	}
	s.afterChange(ctx, accounts[winnerID], received)
	return spoils, nil
}

// Take confiscates amount. It may push the account into debt.
func (s *LedgerService) Take(ctx context.Context, userID, amount int64) (*model.Account, economy.Result, error) {
	if amount <= 0 {
		return nil, economy.Result{}, ErrInvalidAmount
	}
	return s.AdjustBalance(ctx, userID, -amount, model.TxTypeAdminTake, "seized by the crown")
}

// Grant credits amount from the crown.
func (s *LedgerService) Grant(ctx context.Context, userID, amount int64) (*model.Account, economy.Result, error) {
	if amount <= 0 {
		return nil, economy.Result{}, ErrInvalidAmount
	}
	return s.AdjustBalance(ctx, userID, amount, model.TxTypeAdminAdd, "granted by the crown")
}

// AdjustHealth changes account vitality within [0, 100].
func (s *LedgerService) AdjustHealth(ctx context.Context, userID int64, delta int) (*model.Account, error) {
	acc, err := s.update(ctx, userID, func(acc *model.Account) ([]model.Transaction, error) {
		acc.Health = economy.ClampHealth(acc.Health, delta)
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust health: %w", err)
	}
	return acc, nil
}

// AccrueInterest grows every outstanding debt by the configured rate,
// each account exactly once, each in its own transaction. It returns how
// many accounts accrued. Failures on one account do not stop the others.
func (s *LedgerService) AccrueInterest(ctx context.Context) (int, error) {
	ids, err := s.accounts.ListDebtorIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list debtors: %w", err)
	}

	var (
		accrued int
		errs    []error
	)
	for _, id := range ids {
		grew := false
		_, err := s.update(ctx, id, func(acc *model.Account) ([]model.Transaction, error) {
			if acc.Debt <= 0 {
				return nil, nil
			}
			next := economy.AccrueInterest(acc.Debt, s.cfg.InterestRate)
			interest := next - acc.Debt
			acc.Debt = next
			grew = true
			return []model.Transaction{entry(acc.UserID, -interest, model.TxTypeInterest, "interest on debt")}, nil
		})
		if err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to accrue interest")
			errs = append(errs, fmt.Errorf("account %d: %w", id, err))
			continue
		}
		if grew {
			accrued++
		}
	}
	return accrued, errors.Join(errs...)
}

// SweepPrison imprisons every debtor whose debt is at least the configured
// number of calendar days old. Each episode is flagged and announced once.
func (s *LedgerService) SweepPrison(ctx context.Context, now time.Time) ([]*model.Account, error) {
	ids, err := s.accounts.ListDebtorIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list debtors: %w", err)
	}

	var (
		jailed []*model.Account
		errs   []error
	)
	for _, id := range ids {
		due := false
		acc, err := s.update(ctx, id, func(acc *model.Account) ([]model.Transaction, error) {
			if economy.PrisonDue(acc, now, s.cfg.PrisonDays, s.cfg.Location) {
				acc.Imprisoned = true
				due = true
			}
			return nil, nil
		})
		if err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to sweep account")
			errs = append(errs, fmt.Errorf("account %d: %w", id, err))
			continue
		}
		if due {
			days := economy.DaysInDebt(*acc.DebtSince, now, s.cfg.Location)
			log.Info().Int64("user_id", id).Int64("debt", acc.Debt).Int("days", days).Msg("Debtor imprisoned")
			s.notifier.Imprisoned(ctx, acc, days)
			jailed = append(jailed, acc)
		}
	}
	return jailed, errors.Join(errs...)
}

// TaxPayment is one subject's contribution to the royal tax.
type TaxPayment struct {
	UserID   int64
	Username string
	Paid     int64
}

// TaxReport summarizes one tax collection.
type TaxReport struct {
	Collected int64
	Payers    []TaxPayment
	Shares    map[int64]int64
}

// CollectTax levies amount from every account. Only the part the balance
// covers counts as collected; the rest becomes debt. The collected total is
// split evenly among collectors. With no collectors nothing is levied.
func (s *LedgerService) CollectTax(ctx context.Context, amount int64, collectors []int64) (*TaxReport, error) {
	report := &TaxReport{Shares: map[int64]int64{}}
	if amount <= 0 || len(collectors) == 0 {
		return report, nil
	}

	ids, err := s.accounts.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var errs []error
	for _, id := range ids {
		var (
			paid int64
			res  economy.Result
		)
		acc, err := s.update(ctx, id, func(acc *model.Account) ([]model.Transaction, error) {
			paid = min(acc.Balance, amount)
			res = economy.ApplyDelta(acc, -amount, s.cfg.PurseCap, s.now())
			return []model.Transaction{entry(id, -amount, model.TxTypeTax, "royal tax")}, nil
		})
		if err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to levy tax")
			errs = append(errs, fmt.Errorf("account %d: %w", id, err))
			continue
		}
		s.afterChange(ctx, acc, res)
		report.Collected += paid
		if paid > 0 {
			report.Payers = append(report.Payers, TaxPayment{UserID: id, Username: acc.Username, Paid: paid})
		}
	}

	for i, share := range economy.SplitEvenly(report.Collected, len(collectors)) {
		if share == 0 {
			continue
		}
		id := collectors[i]
		if _, _, err := s.AdjustBalance(ctx, id, share, model.TxTypeTaxShare, "share of the royal tax"); err != nil {
			log.Error().Err(err).Int64("user_id", id).Int64("share", share).Msg("Failed to pay tax share")
			errs = append(errs, fmt.Errorf("collector %d: %w", id, err))
			continue
		}
		report.Shares[id] += share
	}

	return report, errors.Join(errs...)
}

// TopBalances retrieves the richest accounts.
func (s *LedgerService) TopBalances(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.accounts.TopBalances(ctx, limit)
}

// TopDebtors retrieves the accounts owing the most.
func (s *LedgerService) TopDebtors(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.accounts.TopDebtors(ctx, limit)
}

func (s *LedgerService) afterChange(ctx context.Context, acc *model.Account, res economy.Result) {
	if res.Capped > 0 {
		log.Info().Int64("user_id", acc.UserID).Int64("capped", res.Capped).Msg("Purse cap reached")
	}
	if res.Released {
		log.Info().Int64("user_id", acc.UserID).Msg("Prisoner released")
		s.notifier.Released(ctx, acc)
	}
}
