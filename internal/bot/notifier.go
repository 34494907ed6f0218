package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/handler"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/service"
)

// Herald announces prison and tax news to the town square chat. With no
// chat configured it only logs.
type Herald struct {
	sender handler.Sender
	chatID int64
}

// NewHerald creates a Herald posting to chatID.
func NewHerald(sender handler.Sender, chatID int64) *Herald {
	return &Herald{sender: sender, chatID: chatID}
}

// Imprisoned announces a debtor thrown into prison.
func (h *Herald) Imprisoned(_ context.Context, acc *model.Account, days int) {
	h.announce(fmt.Sprintf("⛓️ %s is thrown into the debtors' prison after %d days owing %s to the crown.",
		name(acc), days, currency.Format(acc.Debt)))
}

// Released announces a prisoner who paid their way out.
func (h *Herald) Released(_ context.Context, acc *model.Account) {
	h.announce(fmt.Sprintf("🔓 %s has paid their debt and walks free.", name(acc)))
}

// TaxCollected announces the royal tax.
func (h *Herald) TaxCollected(_ context.Context, report *service.TaxReport) {
	if report == nil || report.Collected == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏛️ The royal tax is collected: %s from %d subjects.", currency.Format(report.Collected), len(report.Payers))
	for id, share := range report.Shares {
		fmt.Fprintf(&b, "\n💰 Collector %d receives %s", id, currency.Format(share))
	}
	h.announce(b.String())
}

func (h *Herald) announce(msg string) {
	if h.chatID == 0 {
		log.Info().Str("announcement", msg).Msg("No announce chat configured")
		return
	}
	if _, err := h.sender.Send(tele.ChatID(h.chatID), msg); err != nil {
		log.Error().Err(err).Int64("chat_id", h.chatID).Msg("Failed to send announcement")
	}
}

func name(acc *model.Account) string {
	if acc.Username != "" {
		return acc.Username
	}
	return fmt.Sprintf("User%d", acc.UserID)
}
