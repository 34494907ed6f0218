package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"royal-market-bot/internal/model"
)

// ErrOnCooldown is returned, wrapped in a CooldownError, when an action is
// attempted before its window has elapsed.
var ErrOnCooldown = errors.New("action on cooldown")

// CooldownError carries the time left before an action is available again.
type CooldownError struct {
	Kind      model.CooldownKind
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Kind, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrOnCooldown
}

// CooldownStore persists the last time an action was performed.
type CooldownStore interface {
	Get(ctx context.Context, userID int64, kind model.CooldownKind) (time.Time, bool, error)
	Mark(ctx context.Context, userID int64, kind model.CooldownKind, at time.Time) error
}

// CooldownService gates actions by per-kind windows.
type CooldownService struct {
	store  CooldownStore
	window func(model.CooldownKind) time.Duration
	now    func() time.Time
}

// NewCooldownService creates a new CooldownService. window maps a kind to
// its cooldown; zero disables it.
func NewCooldownService(store CooldownStore, window func(model.CooldownKind) time.Duration) *CooldownService {
	return &CooldownService{store: store, window: window, now: time.Now}
}

// Check reports whether kind is available. When it is not, remaining is
// the time left.
func (s *CooldownService) Check(ctx context.Context, userID int64, kind model.CooldownKind) (time.Duration, bool, error) {
	window := s.window(kind)
	if window <= 0 {
		return 0, true, nil
	}
	last, ok, err := s.store.Get(ctx, userID, kind)
	if err != nil {
		return 0, false, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if !ok {
		return 0, true, nil
	}
	remaining := last.Add(window).Sub(s.now())
	if remaining <= 0 {
		return 0, true, nil
	}
	return remaining, false, nil
}

// Require returns a *CooldownError if kind is not yet available.
func (s *CooldownService) Require(ctx context.Context, userID int64, kind model.CooldownKind) error {
	remaining, ok, err := s.Check(ctx, userID, kind)
	if err != nil {
		return err
	}
	if !ok {
		return &CooldownError{Kind: kind, Remaining: remaining}
	}
	return nil
}

// Mark records that userID just performed kind.
func (s *CooldownService) Mark(ctx context.Context, userID int64, kind model.CooldownKind) error {
	if err := s.store.Mark(ctx, userID, kind, s.now()); err != nil {
		return fmt.Errorf("failed to mark cooldown: %w", err)
	}
	return nil
}
