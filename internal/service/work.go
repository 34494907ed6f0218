package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/dice"
)

// Job is a kind of honest labour and its pay range in gold.
type Job struct {
	Name    string
	Flavour string
	MinGold int64
	MaxGold int64
}

// Jobs available to labourers.
var Jobs = []Job{
	{Name: "Mining", Flavour: "Thou swingest thy pick in the king's mines", MinGold: 5, MaxGold: 20},
	{Name: "Farming", Flavour: "Thou tillest the fields from dawn to dusk", MinGold: 3, MaxGold: 10},
	{Name: "Blacksmithing", Flavour: "Thou hammerest steel at the forge", MinGold: 5, MaxGold: 15},
	{Name: "Carpentry", Flavour: "Thou raisest beams for a new hall", MinGold: 4, MaxGold: 12},
	{Name: "Trading", Flavour: "Thou haggle at the market square", MinGold: 6, MaxGold: 25},
	{Name: "Guard Duty", Flavour: "Thou standest watch upon the walls", MinGold: 4, MaxGold: 15},
}

// LabourResult describes one shift of work.
type LabourResult struct {
	Job     Job
	Earned  int64
	Account *model.Account
}

// WorkService pays for labour and the daily stipend.
type WorkService struct {
	ledger      *LedgerService
	cooldowns   *CooldownService
	src         dice.Source
	dailyReward int64
}

// NewWorkService creates a new WorkService instance.
func NewWorkService(ledger *LedgerService, cooldowns *CooldownService, src dice.Source, dailyReward int64) *WorkService {
	return &WorkService{
		ledger:      ledger,
		cooldowns:   cooldowns,
		src:         src,
		dailyReward: dailyReward,
	}
}

// Labour works a random job. Prisoners cannot work.
func (s *WorkService) Labour(ctx context.Context, userID int64, username string) (*LabourResult, error) {
	acc, err := s.ledger.GetAccount(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	if acc.Imprisoned {
		return nil, ErrImprisoned
	}
	if err := s.cooldowns.Require(ctx, userID, model.CooldownLabour); err != nil {
		return nil, err
	}

	job := Jobs[s.src.Intn(len(Jobs))]
	earned := int64(dice.Between(s.src, int(job.MinGold), int(job.MaxGold))) * currency.Gold

	acc, _, err = s.ledger.AdjustBalance(ctx, userID, earned, model.TxTypeLabour, job.Name)
	if err != nil {
		return nil, err
	}
	if err := s.cooldowns.Mark(ctx, userID, model.CooldownLabour); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to mark labour cooldown")
	}

	return &LabourResult{Job: job, Earned: earned, Account: acc}, nil
}

// ClaimDaily pays the daily stipend once per cooldown window.
func (s *WorkService) ClaimDaily(ctx context.Context, userID int64, username string) (*model.Account, error) {
	if _, err := s.ledger.GetAccount(ctx, userID, username); err != nil {
		return nil, err
	}
	if err := s.cooldowns.Require(ctx, userID, model.CooldownDaily); err != nil {
		return nil, err
	}

	acc, _, err := s.ledger.AdjustBalance(ctx, userID, s.dailyReward, model.TxTypeDaily, "daily stipend")
	if err != nil {
		return nil, fmt.Errorf("failed to pay daily stipend: %w", err)
	}
	if err := s.cooldowns.Mark(ctx, userID, model.CooldownDaily); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to mark daily cooldown")
	}
	return acc, nil
}
