package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/game/coinflip"
	"royal-market-bot/internal/service"
)

const (
	// MessageDeleteInterval is how long game results stay in the chat.
	MessageDeleteInterval = 30 * time.Minute
	cleanInterval         = 5 * time.Minute
)

// TrackedMessage is a game message to be deleted later.
type TrackedMessage struct {
	ChatID    int64
	MessageID int
	SentAt    time.Time
}

type messageDeleter interface {
	Delete(msg tele.Editable) error
}

// GameHandler handles the games of chance.
type GameHandler struct {
	games        *service.GameService
	defaultWager int64

	trackedMessages []TrackedMessage
	messagesMu      sync.Mutex
}

// NewGameHandler creates a new GameHandler. defaultWager is used when a
// command names no amount.
func NewGameHandler(games *service.GameService, defaultWager int64) *GameHandler {
	return &GameHandler{
		games:        games,
		defaultWager: defaultWager,
	}
}

// StartMessageCleaner deletes old game results until ctx is cancelled.
func (h *GameHandler) StartMessageCleaner(ctx context.Context, bot messageDeleter) {
	go func() {
		ticker := time.NewTicker(cleanInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				h.cleanOldMessages(bot, now)
			}
		}
	}()
}

func (h *GameHandler) cleanOldMessages(bot messageDeleter, now time.Time) {
	h.messagesMu.Lock()
	defer h.messagesMu.Unlock()

	remaining := h.trackedMessages[:0]
	for _, msg := range h.trackedMessages {
		if now.Sub(msg.SentAt) < MessageDeleteInterval {
			remaining = append(remaining, msg)
			continue
		}
		err := bot.Delete(&tele.Message{
			ID:   msg.MessageID,
			Chat: &tele.Chat{ID: msg.ChatID},
		})
		if err != nil {
			log.Debug().Err(err).Int("msg_id", msg.MessageID).Msg("Failed to delete old message")
		}
	}
	h.trackedMessages = remaining
}

func (h *GameHandler) trackMessage(msg *tele.Message, now time.Time) {
	if msg == nil || msg.Chat == nil {
		return
	}
	h.messagesMu.Lock()
	defer h.messagesMu.Unlock()

	h.trackedMessages = append(h.trackedMessages, TrackedMessage{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		SentAt:    now,
	})
}

// HandleGamble handles /gamble [amount|all].
func (h *GameHandler) HandleGamble(c tele.Context) error {
	return h.play(c, "gamble", c.Args(), nil)
}

// HandleSlots handles /slots. A spin has a fixed price.
func (h *GameHandler) HandleSlots(c tele.Context) error {
	return h.play(c, "slots", nil, nil)
}

// HandleCoinflip handles /coinflip <heads|tails> [amount|all].
func (h *GameHandler) HandleCoinflip(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /coinflip <heads|tails> [amount|all]\nFor example: /coinflip heads 2g")
	}
	call, err := coinflip.ParseCall(args[0])
	if err != nil {
		return c.Reply("❌ Call heads or tails.")
	}
	return h.play(c, "coinflip", args[1:], map[string]any{coinflip.ParamCall: call})
}

// HandleGames handles /games: the list of games on offer.
func (h *GameHandler) HandleGames(c tele.Context) error {
	msg := "🎲 Games of Chance\n" + divider + "\n"
	for _, g := range h.games.Registry().List() {
		msg += fmt.Sprintf("/%s - %s: %s\n", g.Command(), g.Name(), g.Description())
	}
	msg += fmt.Sprintf("%s\nWithout an amount thou wagerest %s.", divider, currency.Format(h.defaultWager))
	return c.Reply(msg)
}

func (h *GameHandler) play(c tele.Context, command string, args []string, params map[string]any) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	bet, all := h.defaultWager, false
	if len(args) > 0 {
		var err error
		bet, all, err = parseAmount(args[0])
		if err != nil {
			return c.Reply(errorText(err, "wager"))
		}
	}

	res, err := h.games.Play(ctx, sender.ID, displayName(sender), command, bet, all, params)
	if err != nil {
		return c.Reply(errorText(err, "wager"))
	}

	reply, err := c.Bot().Send(c.Chat(), fmt.Sprintf("@%s %s\n👛 Thy purse: %s",
		displayName(sender), res.Result.Description, currency.Format(res.Account.Balance)))
	if err != nil {
		return err
	}
	h.trackMessage(reply, time.Now())
	return nil
}
