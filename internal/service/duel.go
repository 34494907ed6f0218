package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/duel"
	"royal-market-bot/internal/model"
)

// DuelService connects the duel engine to the ledger, the armory, cooldowns
// and duel records.
type DuelService struct {
	ledger    *LedgerService
	shop      *ShopService
	cooldowns *CooldownService
	stats     StatsStore
}

// NewDuelService creates a new DuelService instance.
func NewDuelService(ledger *LedgerService, shop *ShopService, cooldowns *CooldownService, stats StatsStore) *DuelService {
	return &DuelService{
		ledger:    ledger,
		shop:      shop,
		cooldowns: cooldowns,
		stats:     stats,
	}
}

// CanDuel rejects prisoners and subjects still on duel cooldown.
func (s *DuelService) CanDuel(ctx context.Context, userID int64) error {
	acc, err := s.ledger.GetAccount(ctx, userID, "")
	if err != nil {
		return err
	}
	if acc.Imprisoned {
		return ErrImprisoned
	}
	return s.cooldowns.Require(ctx, userID, model.CooldownDuel)
}

// MarkDuel starts the duel cooldown.
func (s *DuelService) MarkDuel(ctx context.Context, userID int64) error {
	return s.cooldowns.Mark(ctx, userID, model.CooldownDuel)
}

// Defense sums the fighter's equipped armor.
func (s *DuelService) Defense(ctx context.Context, userID int64) (int, error) {
	return s.shop.Defense(ctx, userID)
}

// ConsumePotion uses one healing potion from the fighter's sack.
func (s *DuelService) ConsumePotion(ctx context.Context, userID int64) (bool, error) {
	return s.shop.ConsumePotion(ctx, userID)
}

// Settle moves the spoils and records the duel for both fighters. Expired
// challenges change nothing.
func (s *DuelService) Settle(ctx context.Context, session *duel.Session) (int64, error) {
	res := session.Result
	if res == nil || res.Ending == duel.EndExpired || res.Ending == duel.EndNone {
		return 0, nil
	}

	var errs []error
	if res.Draw() {
		for _, f := range session.Fighters {
			if err := s.stats.RecordDraw(ctx, f.ID, f.DamageDealt); err != nil {
				errs = append(errs, err)
			}
		}
		return 0, errors.Join(errs...)
	}

	spoils, err := s.ledger.TransferSpoils(ctx, res.LoserID, res.WinnerID, res.SpoilsRate())
	if err != nil {
		errs = append(errs, err)
	}

	for _, f := range session.Fighters {
		if err := s.stats.RecordDuel(ctx, f.ID, f.ID == res.WinnerID, f.DamageDealt); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return spoils, fmt.Errorf("failed to settle duel %s: %w", session.ID, err)
	}

	log.Info().
		Str("duel_id", session.ID).
		Int64("winner", res.WinnerID).
		Int64("loser", res.LoserID).
		Int64("spoils", spoils).
		Msg("Duel settled")
	return spoils, nil
}
