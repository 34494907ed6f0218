package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/service"
)

const leaderboardSize = 10

var medals = []string{"🥇", "🥈", "🥉"}

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

func rankLabel(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

// HandleTop handles /top: the richest purses.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	accounts, err := h.rankingService.GetTopPurses(context.Background(), leaderboardSize)
	if err != nil {
		return c.Reply(errorText(err, "read the rolls"))
	}

	msg := "👑 Richest Purses of the Realm\n" + divider + "\n"
	if len(accounts) == 0 {
		msg += "No one yet\n"
	}
	for i, acc := range accounts {
		msg += fmt.Sprintf("%s %s: %s\n", rankLabel(i), nameOr(acc.Username, acc.UserID), currency.Format(acc.Balance))
	}
	return c.Reply(msg + divider)
}

// HandleDebtors handles /debtors: the deepest debts owed to the crown.
func (h *RankingHandler) HandleDebtors(c tele.Context) error {
	accounts, err := h.rankingService.GetTopDebtors(context.Background(), leaderboardSize)
	if err != nil {
		return c.Reply(errorText(err, "read the rolls"))
	}

	msg := "📜 The Crown's Debtors\n" + divider + "\n"
	if len(accounts) == 0 {
		msg += "No one owes the crown\n"
	}
	for i, acc := range accounts {
		line := fmt.Sprintf("%d. %s: %s", i+1, nameOr(acc.Username, acc.UserID), currency.Format(acc.Debt))
		if acc.Imprisoned {
			line += " ⛓️"
		}
		msg += line + "\n"
	}
	return c.Reply(msg + divider)
}

// HandleDuelists handles /duelists: most duels won.
func (h *RankingHandler) HandleDuelists(c tele.Context) error {
	stats, err := h.rankingService.GetTopDuelists(context.Background(), leaderboardSize)
	if err != nil {
		return c.Reply(errorText(err, "read the rolls"))
	}

	msg := "⚔️ Champions of the Lists\n" + divider + "\n"
	if len(stats) == 0 {
		msg += "No duels fought yet\n"
	}
	for i, s := range stats {
		msg += fmt.Sprintf("%s %s: %d won, %d lost, %d damage\n",
			rankLabel(i), nameOr(s.Username, s.UserID), s.Wins, s.Losses, s.DamageDealt)
	}
	return c.Reply(msg + divider)
}

// HandleDailyTop handles /daily_top: today's winners and losers at the
// tables.
func (h *RankingHandler) HandleDailyTop(c tele.Context) error {
	ctx := context.Background()

	winners, err := h.rankingService.GetDailyWinners(ctx, leaderboardSize)
	if err != nil {
		return c.Reply(errorText(err, "read the rolls"))
	}
	losers, err := h.rankingService.GetDailyLosers(ctx, leaderboardSize)
	if err != nil {
		return c.Reply(errorText(err, "read the rolls"))
	}

	msg := "📊 Today at the Tables\n" + divider + "\n"

	msg += "🏆 Top Winners\n"
	if len(winners) == 0 {
		msg += "None yet\n"
	}
	for i, w := range winners {
		msg += fmt.Sprintf("%s %s: +%s\n", rankLabel(i), nameOr(w.Username, w.UserID), currency.Format(w.NetProfit))
	}

	msg += "\n" + divider + "\n"

	msg += "😢 Heaviest Losses\n"
	if len(losers) == 0 {
		msg += "None yet\n"
	}
	for i, l := range losers {
		msg += fmt.Sprintf("%d. %s: -%s\n", i+1, nameOr(l.Username, l.UserID), currency.Format(-l.NetProfit))
	}

	return c.Reply(msg + divider)
}
