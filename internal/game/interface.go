// Package game defines the mini-game interface and registry. Games are pure:
// they roll, compute a net payout, and describe the outcome. Settling the
// payout against the ledger is the caller's job.
package game

import (
	"context"
	"errors"

	"royal-market-bot/internal/pkg/dice"
)

// Common validation errors.
var (
	ErrInvalidBet = errors.New("bet amount must be positive")
	ErrBetTooHigh = errors.New("bet exceeds maximum allowed")
)

// GameResult represents the outcome of a game play.
type GameResult struct {
	Stake       int64          // Amount the balance must cover to play
	Payout      int64          // Net payout (positive = win, negative = loss, 0 = push)
	Description string         // Human-readable result description
	Details     map[string]any // Additional game-specific details
}

// Game defines the interface that all games must implement.
type Game interface {
	// Name returns the game's display name (e.g., "Royal Dice")
	Name() string

	// Command returns the command that triggers this game (e.g., "gamble")
	Command() string

	// Description returns a brief description of the game
	Description() string

	// TxType returns the journal type recorded for this game's payouts.
	TxType() string

	// Stake returns how much the balance must cover for a given bet.
	Stake(bet int64) int64

	// ValidateBet checks if the bet amount and parameters are valid.
	ValidateBet(bet int64, params map[string]any) error

	// Play rolls with src and returns the result.
	Play(ctx context.Context, src dice.Source, bet int64, params map[string]any) (*GameResult, error)
}
