// Package coinflip implements calling a coin toss for a wager.
package coinflip

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/game"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/dice"
)

// ErrInvalidCall is returned when the call is not heads or tails.
var ErrInvalidCall = errors.New("call must be heads or tails")

// ParamCall is the params key holding the player's call.
const ParamCall = "call"

// Side of a coin.
type Side int

const (
	Heads Side = iota
	Tails
)

func (s Side) String() string {
	if s == Heads {
		return "heads"
	}
	return "tails"
}

// ParseCall accepts heads, tails, h, or t in any case.
func ParseCall(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heads", "head", "h":
		return Heads, nil
	case "tails", "tail", "t":
		return Tails, nil
	default:
		return 0, ErrInvalidCall
	}
}

// Game implements game.Game for coin flips.
type Game struct {
	maxBet int64
}

// Config holds configuration for coin flips.
type Config struct {
	MaxBet int64 // 0 means no maximum
}

// New creates a new coin flip game with the given configuration.
func New(cfg *Config) *Game {
	g := &Game{}
	if cfg != nil {
		g.maxBet = cfg.MaxBet
	}
	return g
}

// Name returns the game's display name.
func (g *Game) Name() string {
	return "Coin Flip"
}

// Command returns the command that triggers this game.
func (g *Game) Command() string {
	return "coinflip"
}

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Call heads or tails: right doubles the wager, wrong loses it"
}

// TxType returns the journal type for payouts.
func (g *Game) TxType() string {
	return model.TxTypeCoinflip
}

// Stake returns the wager itself.
func (g *Game) Stake(bet int64) int64 {
	return bet
}

// ValidateBet checks the bet amount and the call.
func (g *Game) ValidateBet(bet int64, params map[string]any) error {
	if bet <= 0 {
		return game.ErrInvalidBet
	}
	if g.maxBet > 0 && bet > g.maxBet {
		return fmt.Errorf("%w: max bet is %s", game.ErrBetTooHigh, currency.Format(g.maxBet))
	}
	_, err := callFrom(params)
	return err
}

// Play tosses the coin.
func (g *Game) Play(_ context.Context, src dice.Source, bet int64, params map[string]any) (*game.GameResult, error) {
	if err := g.ValidateBet(bet, params); err != nil {
		return nil, err
	}
	call, _ := callFrom(params)

	landed := Side(src.Intn(2))
	payout := -bet
	description := fmt.Sprintf("🪙 The coin lands %s. Thou calledst %s and losest %s.", landed, call, currency.Format(bet))
	if landed == call {
		payout = bet
		description = fmt.Sprintf("🪙 The coin lands %s! Thou winnest %s.", landed, currency.Format(bet))
	}

	return &game.GameResult{
		Stake:       bet,
		Payout:      payout,
		Description: description,
		Details: map[string]any{
			"call":   call.String(),
			"landed": landed.String(),
		},
	}, nil
}

func callFrom(params map[string]any) (Side, error) {
	switch v := params[ParamCall].(type) {
	case Side:
		return v, nil
	case string:
		return ParseCall(v)
	default:
		return 0, ErrInvalidCall
	}
}
