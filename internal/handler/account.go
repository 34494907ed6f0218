package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/service"
)

// AccountHandler handles purse, labour, and stipend commands.
type AccountHandler struct {
	ledger  *service.LedgerService
	work    *service.WorkService
	ranking *service.RankingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger *service.LedgerService, work *service.WorkService, ranking *service.RankingService) *AccountHandler {
	return &AccountHandler{
		ledger:  ledger,
		work:    work,
		ranking: ranking,
	}
}

// HandleStart handles /start and /help.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "begin"))
	}

	return c.Reply(fmt.Sprintf(
		"🏰 Hail, %s! Welcome to the Royal Market.\n\n"+
			"💰 Thy purse: %s\n\n"+
			"📜 Commands:\n"+
			"/purse - thy purse, debt and health\n"+
			"/labour - earn coin by honest work\n"+
			"/daily - claim the daily stipend\n"+
			"/journal - thy latest ledger entries\n"+
			"/pay - pay another subject (reply to them)\n"+
			"/paydebt <amount|all> - repay the crown\n"+
			"/market - browse the Royal Market\n"+
			"/sack - what thou carriest\n"+
			"/gamble, /slots, /coinflip - games of chance\n"+
			"/duel - challenge a subject (reply to them)\n"+
			"/top, /debtors, /duelists, /daily_top - leaderboards",
		displayName(sender), currency.Format(acc.Balance),
	))
}

// HandlePurse handles /purse.
func (h *AccountHandler) HandlePurse(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "count thy coin"))
	}
	return c.Reply(formatPurse(acc))
}

func formatPurse(acc *model.Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n%s\n", nameOr(acc.Username, acc.UserID), divider)
	fmt.Fprintf(&b, "💰 Purse: %s\n", currency.Format(acc.Balance))
	if acc.InDebt() {
		fmt.Fprintf(&b, "📜 Debt: %s", currency.Format(acc.Debt))
		if acc.DebtSince != nil {
			fmt.Fprintf(&b, " (since %s)", acc.DebtSince.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "❤️ Health: %d/%d\n", acc.Health, model.MaxHealth)
	if acc.Imprisoned {
		b.WriteString("⛓️ Imprisoned for debt\n")
	}
	b.WriteString(divider)
	return b.String()
}

// HandleProfile handles /me: purse plus today's gambling and duel record.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "look upon thyself"))
	}
	profit, _ := h.ranking.GetUserDailyProfit(ctx, sender.ID)
	stats, err := h.ranking.GetDuelStats(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err, "look upon thyself"))
	}

	sign := ""
	if profit > 0 {
		sign = "+"
	}
	if profit < 0 {
		sign = "-"
		profit = -profit
	}

	return c.Reply(fmt.Sprintf(
		"%s\n🎲 Today at the tables: %s%s\n⚔️ Duels: %d won, %d lost, %d fought, %d damage dealt",
		formatPurse(acc), sign, currency.Format(profit),
		stats.Wins, stats.Losses, stats.DuelsFought, stats.DamageDealt,
	))
}

// HandleLabour handles /labour.
func (h *AccountHandler) HandleLabour(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	res, err := h.work.Labour(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "labour"))
	}
	return c.Reply(fmt.Sprintf(
		"⚒️ %s.\n💰 Thou earnest %s as a reward for %s.\n👛 Thy purse: %s",
		res.Job.Flavour, currency.Format(res.Earned), strings.ToLower(res.Job.Name), currency.Format(res.Account.Balance),
	))
}

// HandleDaily handles /daily.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := h.work.ClaimDaily(ctx, sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "claim the stipend"))
	}
	return c.Reply(fmt.Sprintf("👑 The crown grants thee thy daily stipend.\n👛 Thy purse: %s", currency.Format(acc.Balance)))
}

// HandleJournal handles /journal: the latest entries in the ledger.
func (h *AccountHandler) HandleJournal(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	entries, err := h.ranking.GetJournal(context.Background(), sender.ID, 10)
	if err != nil {
		return c.Reply(errorText(err, "read thy ledger"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📒 %s's Ledger\n%s\n", displayName(sender), divider)
	if len(entries) == 0 {
		b.WriteString("No entries yet\n")
	}
	for _, e := range entries {
		sign := "+"
		amount := e.Amount
		if amount < 0 {
			sign, amount = "-", -amount
		}
		fmt.Fprintf(&b, "%s %s%s %s", e.CreatedAt.Format("01-02 15:04"), sign, currency.Format(amount), e.Type)
		if e.Description != nil && *e.Description != "" {
			fmt.Fprintf(&b, " (%s)", *e.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString(divider)
	return c.Reply(b.String())
}
