// Package handler provides Telegram bot command handlers. Handlers parse
// arguments, call one service operation, and render the result.
package handler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/duel"
	"royal-market-bot/internal/game"
	"royal-market-bot/internal/service"
)

const divider = "━━━━━━━━━━━━━━━"

// displayName returns the best human-readable name for a Telegram user.
func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("User%d", u.ID)
}

// nameOr falls back to a numbered name for accounts without a username.
func nameOr(username string, id int64) string {
	if username != "" {
		return username
	}
	return fmt.Sprintf("User%d", id)
}

// parseAmount reads an amount argument. "all" and "max" set all instead
// of returning a number. Parsed amounts are always positive.
func parseAmount(arg string) (amount int64, all bool, err error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "all", "max":
		return 0, true, nil
	}
	amount, err = currency.Parse(arg)
	if err != nil {
		return 0, false, err
	}
	return amount, false, nil
}

// targetOf resolves the user a command is aimed at: the author of the
// replied-to message, or a text mention carrying a user.
func targetOf(c tele.Context) *tele.User {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && !msg.ReplyTo.Sender.IsBot {
		return msg.ReplyTo.Sender
	}
	for _, entity := range msg.Entities {
		if entity.Type == tele.EntityTMention && entity.User != nil {
			return entity.User
		}
	}
	return nil
}

// stripTarget drops a leading @mention from the arguments.
func stripTarget(args []string) []string {
	if len(args) > 0 && strings.HasPrefix(args[0], "@") {
		return args[1:]
	}
	return args
}

// callbackData returns the callback payload without telebot's \f marker.
func callbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(cb.Data, "\f")
}

// callbackParts splits callback data into its "|" separated fields.
func callbackParts(c tele.Context) []string {
	data := callbackData(c)
	if data == "" {
		return nil
	}
	return strings.Split(data, "|")
}

// formatDuration renders a remaining wait as "1h 5m" or "42s".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// errorText turns an expected failure into a reply. Unexpected errors are
// logged and rendered generically.
func errorText(err error, action string) string {
	var cd *service.CooldownError
	switch {
	case errors.As(err, &cd):
		return fmt.Sprintf("⏳ Thou must rest %s before thou canst %s again.", formatDuration(cd.Remaining), action)
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Thy purse is too light for that."
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, currency.ErrInvalidAmount), errors.Is(err, currency.ErrEmptyAmount):
		return "❌ That is no proper amount. Try 15, 15g, 30s or 1g50s."
	case errors.Is(err, service.ErrSelfTransfer):
		return "❌ Thou canst not pay thyself."
	case errors.Is(err, service.ErrNoDebt):
		return "✅ Thou owest the crown nothing."
	case errors.Is(err, service.ErrImprisoned):
		return "⛓️ Thou art in the debtors' prison. Pay thy debt to be free."
	case errors.Is(err, service.ErrItemNotFound):
		return "❌ The market sells no such thing."
	case errors.Is(err, service.ErrInsufficientItemQuantity):
		return "❌ Thou hast none of that in thy sack."
	case errors.Is(err, service.ErrNotEquippable):
		return "❌ That cannot be worn or wielded."
	case errors.Is(err, service.ErrQuantityTooLarge):
		return fmt.Sprintf("❌ The market sells at most %d of a thing at once.", service.MaxPurchaseQuantity)
	case errors.Is(err, service.ErrNotUsable):
		return "❌ A title is not something one uses."
	case errors.Is(err, service.ErrUnknownGame):
		return "❌ No such game is played here."
	case errors.Is(err, game.ErrInvalidBet):
		return "❌ Thy wager must be positive."
	case errors.Is(err, game.ErrBetTooHigh):
		return "❌ " + err.Error()
	case errors.Is(err, duel.ErrSelfDuel):
		return "❌ Thou canst not duel thyself."
	case errors.Is(err, duel.ErrDuelRoleNotAuthorized):
		return "❌ Only sworn duelists may fight."
	case errors.Is(err, duel.ErrAlreadyInDuel):
		return "❌ A duel is already under way."
	case errors.Is(err, duel.ErrNotYourTurn):
		return "⏳ Wait thy turn."
	case errors.Is(err, duel.ErrNotParticipant):
		return "❌ This is not thy fight."
	case errors.Is(err, duel.ErrNoPotion):
		return "❌ Thou hast no healing potion."
	case errors.Is(err, duel.ErrSessionNotFound), errors.Is(err, duel.ErrSessionConcluded), errors.Is(err, duel.ErrNotStarted):
		return "❌ That duel is over."
	default:
		log.Error().Err(err).Str("action", action).Msg("Handler failed")
		return "❌ Something went awry. Try again later."
	}
}
