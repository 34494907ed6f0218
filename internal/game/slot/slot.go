// Package slot implements the royal slot machine.
package slot

import (
	"context"
	"fmt"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/game"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/dice"
)

// DefaultCost is the price of one spin.
const DefaultCost = 1 * currency.Gold

// Symbols on each reel.
var Symbols = []string{"🍒", "⭐", "🔔", "👑", "💎", "⚔️", "🛡️", "🐉", "⚜️", "🏰"}

// Prizes in gold for three of a kind. Other triples pay TriplePrize.
var triplePrizes = map[string]int64{
	"💎": 40,
	"🐉": 30,
	"👑": 20,
	"🏰": 16,
}

// Prize tiers in gold.
const (
	TriplePrize = 8
	PairPrize   = 2
)

// Game implements game.Game for the slot machine.
type Game struct {
	cost int64
}

// Config holds configuration for the slot machine.
type Config struct {
	Cost int64
}

// New creates a new slot machine with the given configuration.
func New(cfg *Config) *Game {
	cost := int64(DefaultCost)
	if cfg != nil && cfg.Cost > 0 {
		cost = cfg.Cost
	}
	return &Game{cost: cost}
}

// Name returns the game's display name.
func (g *Game) Name() string {
	return "Royal Slots"
}

// Command returns the command that triggers this game.
func (g *Game) Command() string {
	return "slots"
}

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return fmt.Sprintf("Spin three reels for %s: three diamonds pay 40 gold, any pair pays 2", currency.Format(g.cost))
}

// TxType returns the journal type for payouts.
func (g *Game) TxType() string {
	return model.TxTypeSlots
}

// Stake returns the fixed spin price; the bet is ignored.
func (g *Game) Stake(int64) int64 {
	return g.cost
}

// ValidateBet accepts any bet; a spin always costs the fixed price.
func (g *Game) ValidateBet(int64, map[string]any) error {
	return nil
}

// Play spins the reels. The payout is the prize minus the spin price.
func (g *Game) Play(_ context.Context, src dice.Source, _ int64, _ map[string]any) (*game.GameResult, error) {
	reels := Spin(src)
	prize := Prize(reels) * currency.Gold
	payout := prize - g.cost

	display := fmt.Sprintf("[ %s | %s | %s ]", reels[0], reels[1], reels[2])
	var description string
	switch {
	case prize >= 20*currency.Gold:
		description = fmt.Sprintf("🎰 %s\n🎉 A legendary win! Thou hast won %s!", display, currency.Format(prize))
	case prize > 0:
		description = fmt.Sprintf("🎰 %s\n🎊 Fortune smiles! Thou hast won %s.", display, currency.Format(prize))
	default:
		description = fmt.Sprintf("🎰 %s\n😢 No win. Thou hast lost %s.", display, currency.Format(g.cost))
	}

	return &game.GameResult{
		Stake:       g.cost,
		Payout:      payout,
		Description: description,
		Details: map[string]any{
			"reels": reels,
			"prize": prize,
		},
	}, nil
}

// Spin draws one symbol per reel.
func Spin(src dice.Source) [3]string {
	var reels [3]string
	for i := range reels {
		reels[i] = Symbols[src.Intn(len(Symbols))]
	}
	return reels
}

// Prize returns the prize in gold for a spin.
func Prize(reels [3]string) int64 {
	a, b, c := reels[0], reels[1], reels[2]
	switch {
	case a == b && b == c:
		if p, ok := triplePrizes[a]; ok {
			return p
		}
		return TriplePrize
	case a == b || b == c || a == c:
		return PairPrize
	default:
		return 0
	}
}
