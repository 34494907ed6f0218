// Package gamble implements royal dice: the player's d12 against the house's.
package gamble

import (
	"context"
	"fmt"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/game"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/dice"
)

// Sides is the die both parties roll.
const Sides = 12

var rollNames = [Sides + 1]string{
	"", "Snake Eyes", "the Deuce", "the Trey", "the Square", "the Cinque", "the Six",
	"the Seven", "the Eight", "the Nine", "the Ten", "the Eleven", "the Dozen",
}

// Game implements game.Game for royal dice.
type Game struct {
	maxBet int64
}

// Config holds configuration for royal dice.
type Config struct {
	MaxBet int64 // 0 means no maximum
}

// New creates a new royal dice game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{}
	if cfg != nil {
		g.maxBet = cfg.MaxBet
	}
	return g
}

// Name returns the game's display name.
func (g *Game) Name() string {
	return "Royal Dice"
}

// Command returns the command that triggers this game.
func (g *Game) Command() string {
	return "gamble"
}

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Roll a d12 against the house: higher wins the wager, lower loses it, a tie is a push"
}

// TxType returns the journal type for payouts.
func (g *Game) TxType() string {
	return model.TxTypeGamble
}

// Stake returns the wager itself.
func (g *Game) Stake(bet int64) int64 {
	return bet
}

// ValidateBet checks if the bet amount is valid.
func (g *Game) ValidateBet(bet int64, _ map[string]any) error {
	if bet <= 0 {
		return game.ErrInvalidBet
	}
	if g.maxBet > 0 && bet > g.maxBet {
		return fmt.Errorf("%w: max bet is %s", game.ErrBetTooHigh, currency.Format(g.maxBet))
	}
	return nil
}

// Play rolls both dice and settles the wager.
func (g *Game) Play(_ context.Context, src dice.Source, bet int64, params map[string]any) (*game.GameResult, error) {
	if err := g.ValidateBet(bet, params); err != nil {
		return nil, err
	}

	player := dice.Roll(src, Sides)
	house := dice.Roll(src, Sides)
	payout := CalculatePayout(player, house, bet)

	rolls := fmt.Sprintf("🎲 Thy roll: %d (%s)\n🏰 House roll: %d (%s)", player, rollNames[player], house, rollNames[house])
	var description string
	switch {
	case payout > 0:
		description = fmt.Sprintf("%s\n🏆 Victory! Thou gainest %s.", rolls, currency.Format(payout))
	case payout < 0:
		description = fmt.Sprintf("%s\n💀 Defeat! Thou losest %s.", rolls, currency.Format(-payout))
	default:
		description = fmt.Sprintf("%s\n⚖️ A tie! Thy wager is returned.", rolls)
	}

	return &game.GameResult{
		Stake:       bet,
		Payout:      payout,
		Description: description,
		Details: map[string]any{
			"player": player,
			"house":  house,
			"bet":    bet,
		},
	}, nil
}

// CalculatePayout returns +bet when the player rolls higher, -bet when the
// house does, and 0 on a tie.
func CalculatePayout(player, house int, bet int64) int64 {
	switch {
	case player > house:
		return bet
	case player < house:
		return -bet
	default:
		return 0
	}
}
