package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/duel"
)

// Duel callback uniques. Buttons carry "\f<unique>|<session>[|<action>]".
const (
	CallbackDuelAccept  = "duel_accept"
	CallbackDuelDecline = "duel_decline"
	CallbackDuelAct     = "duel_act"
)

// Sender delivers messages to a chat. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// DuelHandler handles challenges and the buttons of running duels. It also
// announces duels that end on a timer.
type DuelHandler struct {
	manager *duel.Manager
	sender  Sender
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(manager *duel.Manager, sender Sender) *DuelHandler {
	return &DuelHandler{
		manager: manager,
		sender:  sender,
	}
}

// HandleDuel handles /duel, replying to the subject being challenged.
func (h *DuelHandler) HandleDuel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || c.Chat() == nil {
		return nil
	}
	target := targetOf(c)
	if target == nil {
		return c.Reply("❌ Usage: reply to a subject with /duel to challenge them")
	}

	s, err := h.manager.Challenge(context.Background(), c.Chat().ID,
		duel.Fighter{ID: sender.ID, Name: displayName(sender)},
		duel.Fighter{ID: target.ID, Name: displayName(target)},
	)
	if err != nil {
		return c.Reply(errorText(err, "duel"))
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("⚔️ Accept", CallbackDuelAccept, s.ID),
		markup.Data("🏳️ Decline", CallbackDuelDecline, s.ID),
	))
	return c.Send(fmt.Sprintf(
		"⚔️ %s throws down the gauntlet before %s!\n%s, dost thou accept?",
		s.Challenger().Name, s.Opponent().Name, s.Opponent().Name,
	), markup)
}

// HandleDuelCallback handles accept, decline, and action buttons.
func (h *DuelHandler) HandleDuelCallback(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	parts := callbackParts(c)
	if sender == nil || len(parts) < 2 {
		return nil
	}
	id := parts[1]

	switch parts[0] {
	case CallbackDuelAccept:
		s, err := h.manager.Accept(ctx, id, sender.ID)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err, "duel"), ShowAlert: true})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "⚔️ To arms!"})
		return c.Edit(fmt.Sprintf("⚔️ The duel begins!\n%s", formatSession(s)), actionPanel(s))

	case CallbackDuelDecline:
		s, err := h.manager.Decline(ctx, id, sender.ID)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err, "duel"), ShowAlert: true})
		}
		_ = c.Respond()
		return c.Edit(fmt.Sprintf("🏳️ %s declines the challenge of %s.", s.Opponent().Name, s.Challenger().Name))

	case CallbackDuelAct:
		if len(parts) < 3 {
			return nil
		}
		action, ok := duel.ParseAction(parts[2])
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ No such manoeuvre."})
		}
		turn, err := h.manager.Act(ctx, id, sender.ID, action)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err, "act"), ShowAlert: true})
		}
		_ = c.Respond()

		msg := formatOutcome(turn.Session, turn.Outcome) + "\n\n"
		if res := turn.Session.Result; res != nil {
			return c.Edit(msg + formatResult(turn.Session, res, turn.Spoils))
		}
		return c.Edit(msg+formatSession(turn.Session), actionPanel(turn.Session))
	}
	return nil
}

// ChallengeExpired announces a challenge nobody answered.
func (h *DuelHandler) ChallengeExpired(s *duel.Session) {
	h.announce(s.ChatID, fmt.Sprintf("⌛ %s did not answer the challenge of %s in time.",
		s.Opponent().Name, s.Challenger().Name))
}

// TurnTimedOut announces a fighter who let their turn run out.
func (h *DuelHandler) TurnTimedOut(s *duel.Session, spoils int64) {
	msg := "⌛ Time is up!\n\n"
	if s.Result != nil {
		msg += formatResult(s, s.Result, spoils)
	}
	h.announce(s.ChatID, msg)
}

func (h *DuelHandler) announce(chatID int64, msg string) {
	if _, err := h.sender.Send(tele.ChatID(chatID), msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to announce duel")
	}
}

func actionPanel(s *duel.Session) *tele.ReplyMarkup {
	labels := map[duel.Action]string{
		duel.Thrust: "🗡️ Thrust",
		duel.Slash:  "⚔️ Slash",
		duel.Block:  "🛡️ Block",
		duel.Dodge:  "💨 Dodge",
		duel.Heal:   "🧪 Heal",
		duel.Flee:   "🏃 Flee",
	}
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	var row []tele.Btn
	for _, a := range duel.Actions() {
		row = append(row, markup.Data(labels[a], CallbackDuelAct, s.ID, a.String()))
		// 3 buttons per row
		if len(row) == 3 {
			rows = append(rows, markup.Row(row...))
			row = nil
		}
	}
	markup.Inline(rows...)
	return markup
}

func healthBar(health int) string {
	filled := min(max((health+9)/10, 0), 10)
	return strings.Repeat("🟥", filled) + strings.Repeat("⬜", 10-filled)
}

func formatSession(s *duel.Session) string {
	var b strings.Builder
	b.WriteString(divider + "\n")
	for _, f := range s.Fighters {
		fmt.Fprintf(&b, "%s %s ❤️ %d", f.Name, healthBar(f.Health), f.Health)
		if f.Defense > 0 {
			fmt.Fprintf(&b, " 🛡️ %d", f.Defense)
		}
		if f.DodgeArmed {
			b.WriteString(" 💨")
		}
		b.WriteString("\n")
	}
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "👉 %s, it is thy turn.", s.Current().Name)
	return b.String()
}

func formatOutcome(s *duel.Session, out *duel.Outcome) string {
	actor, _ := s.Fighter(out.Actor)
	name := actor.Name
	switch out.Action {
	case duel.Thrust, duel.Slash:
		verb := "thrusts"
		if out.Action == duel.Slash {
			verb = "slashes"
		}
		switch {
		case out.Dodged:
			return fmt.Sprintf("💨 %s %s, but the blow is dodged!", name, verb)
		case !out.Hit:
			return fmt.Sprintf("🌬️ %s %s and misses.", name, verb)
		default:
			return fmt.Sprintf("🩸 %s lands a %s for %d damage!", name, out.Action, out.Damage)
		}
	case duel.Block:
		return fmt.Sprintf("🛡️ %s raises their guard (+%d defense).", name, out.DefenseGained)
	case duel.Dodge:
		return fmt.Sprintf("💨 %s readies to dodge the next blow.", name)
	case duel.Heal:
		return fmt.Sprintf("🧪 %s quaffs a potion and heals %d.", name, out.Healed)
	case duel.Flee:
		if out.Fled {
			return fmt.Sprintf("🏃 %s flees the field!", name)
		}
		return fmt.Sprintf("🪤 %s tries to flee but stumbles.", name)
	default:
		return ""
	}
}

func formatResult(s *duel.Session, res *duel.Result, spoils int64) string {
	if res.Draw() {
		return "⚖️ Both fighters fall at once. The duel is a draw."
	}
	winner, _ := s.Fighter(res.WinnerID)
	loser, _ := s.Fighter(res.LoserID)
	if winner == nil || loser == nil {
		return "🏳️ The duel is over."
	}

	var how string
	switch res.Ending {
	case duel.EndDefeat:
		how = fmt.Sprintf("🏆 %s defeats %s!", winner.Name, loser.Name)
	case duel.EndFlee:
		how = fmt.Sprintf("🏆 %s holds the field as %s flees.", winner.Name, loser.Name)
	case duel.EndTimeout:
		how = fmt.Sprintf("🏆 %s wins as %s dithers too long.", winner.Name, loser.Name)
	default:
		how = "🏳️ The duel is over."
	}
	if spoils > 0 {
		how += fmt.Sprintf("\n💰 %s claims %s in spoils.", winner.Name, currency.Format(spoils))
	}
	return how
}
