package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/config"
	"royal-market-bot/internal/model"
)

// PrivateUsers remembers who has spoken in a whitelisted group. Only they
// may use the bot in private chat once a whitelist is configured.
type PrivateUsers struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewPrivateUsers creates an empty set.
func NewPrivateUsers() *PrivateUsers {
	return &PrivateUsers{users: make(map[int64]struct{})}
}

// Allow marks a user as allowed in private chat.
func (p *PrivateUsers) Allow(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = struct{}{}
}

// Allowed reports whether a user may use private chat.
func (p *PrivateUsers) Allowed(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[userID]
	return ok
}

// WhitelistMiddleware ignores updates from chats outside the whitelist.
func WhitelistMiddleware(cfg *config.Config, private *PrivateUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()

			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || private.Allowed(sender.ID) {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not seen in a whitelisted group")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			private.Allow(sender.ID)
			return next(c)
		}
	}
}

// AdminMiddleware rejects senders who are not crown officials.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Only officers of the crown may do that.")
			}

			return next(c)
		}
	}
}

// AccountLookup loads an account for gating.
type AccountLookup interface {
	GetAccount(ctx context.Context, userID int64, username string) (*model.Account, error)
}

// PrisonMiddleware turns imprisoned senders away before the handler runs.
// Lookup failures fall through to the handler, whose service repeats the
// check.
func PrisonMiddleware(accounts AccountLookup) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			acc, err := accounts.GetAccount(context.Background(), sender.ID, sender.Username)
			if err == nil && acc.Imprisoned {
				log.Debug().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Prisoner turned away")
				return c.Reply("⛓️ Thou art in the debtors' prison. Pay thy debt with /paydebt to be free.")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming update at debug level.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Something went awry. Try again later.")
				}
			}()
			return next(c)
		}
	}
}
