package service

import (
	"context"
	"time"

	"royal-market-bot/internal/model"
)

// StatsStore persists duel records.
type StatsStore interface {
	RecordDuel(ctx context.Context, userID int64, won bool, damage int) error
	RecordDraw(ctx context.Context, userID int64, damage int) error
	Get(ctx context.Context, userID int64) (*model.DuelStats, error)
	Top(ctx context.Context, limit int) ([]*model.DuelStats, error)
}

// JournalStore reads the ledger journal.
type JournalStore interface {
	GetDailyWinners(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error)
	GetDailyLosers(ctx context.Context, date time.Time, limit int) ([]*model.DailyRank, error)
	GetUserDailyProfit(ctx context.Context, userID int64, date time.Time) (int64, error)
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
}

// RankingService handles leaderboards.
type RankingService struct {
	ledger   *LedgerService
	stats    StatsStore
	journal  JournalStore
	timezone *time.Location
	now      func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(ledger *LedgerService, stats StatsStore, journal JournalStore, timezone *time.Location) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		ledger:   ledger,
		stats:    stats,
		journal:  journal,
		timezone: timezone,
		now:      time.Now,
	}
}

// GetTopPurses retrieves the richest subjects.
func (s *RankingService) GetTopPurses(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.ledger.TopBalances(ctx, limit)
}

// GetTopDebtors retrieves the subjects owing the most.
func (s *RankingService) GetTopDebtors(ctx context.Context, limit int) ([]*model.Account, error) {
	return s.ledger.TopDebtors(ctx, limit)
}

// GetTopDuelists retrieves the duelists with the most wins.
func (s *RankingService) GetTopDuelists(ctx context.Context, limit int) ([]*model.DuelStats, error) {
	return s.stats.Top(ctx, limit)
}

// GetDuelStats retrieves one user's duel record.
func (s *RankingService) GetDuelStats(ctx context.Context, userID int64) (*model.DuelStats, error) {
	return s.stats.Get(ctx, userID)
}

// GetDailyWinners retrieves today's biggest gambling winners.
func (s *RankingService) GetDailyWinners(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.journal.GetDailyWinners(ctx, s.now().In(s.timezone), limit)
}

// GetDailyLosers retrieves today's biggest gambling losers.
func (s *RankingService) GetDailyLosers(ctx context.Context, limit int) ([]*model.DailyRank, error) {
	return s.journal.GetDailyLosers(ctx, s.now().In(s.timezone), limit)
}

// GetUserDailyProfit retrieves a user's gambling result for today.
func (s *RankingService) GetUserDailyProfit(ctx context.Context, userID int64) (int64, error) {
	return s.journal.GetUserDailyProfit(ctx, userID, s.now().In(s.timezone))
}

// GetJournal retrieves a user's latest ledger entries, newest first.
func (s *RankingService) GetJournal(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	return s.journal.GetByUserID(ctx, userID, limit)
}
