package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/game"
	"royal-market-bot/internal/model"
	"royal-market-bot/internal/pkg/dice"
)

// ErrUnknownGame is returned for commands with no registered game.
var ErrUnknownGame = errors.New("unknown game")

// PlayResult is a settled game round.
type PlayResult struct {
	Game    game.Game
	Result  *game.GameResult
	Account *model.Account
}

// GameService plays registered mini-games and settles them on the ledger.
type GameService struct {
	registry *game.Registry
	ledger   *LedgerService
	src      dice.Source
}

// NewGameService creates a new GameService instance.
func NewGameService(registry *game.Registry, ledger *LedgerService, src dice.Source) *GameService {
	return &GameService{registry: registry, ledger: ledger, src: src}
}

// Registry returns the games on offer.
func (s *GameService) Registry() *game.Registry {
	return s.registry
}

// Play runs one round. With all set, the bet is the whole balance. The
// balance must cover the game's stake; prisoners cannot play.
func (s *GameService) Play(ctx context.Context, userID int64, username, command string, bet int64, all bool, params map[string]any) (*PlayResult, error) {
	g, ok := s.registry.Get(command)
	if !ok {
		return nil, ErrUnknownGame
	}

	acc, err := s.ledger.GetAccount(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	if acc.Imprisoned {
		return nil, ErrImprisoned
	}
	if all {
		bet = acc.Balance
	}
	if err := g.ValidateBet(bet, params); err != nil {
		return nil, err
	}
	stake := g.Stake(bet)
	if acc.Balance < stake {
		return nil, ErrInsufficientFunds
	}

	res, err := g.Play(ctx, s.src, bet, params)
	if err != nil {
		return nil, fmt.Errorf("failed to play %s: %w", command, err)
	}

	acc, err = s.ledger.Wager(ctx, userID, stake, res.Payout, g.TxType(), g.Name())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("user_id", userID).
		Str("game", command).
		Int64("stake", stake).
		Int64("payout", res.Payout).
		Msg("Game settled")
	return &PlayResult{Game: g, Result: res, Account: acc}, nil
}
