package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/config"
	"royal-market-bot/internal/model"
)

// fakeContext implements the parts of tele.Context the middleware uses.
type fakeContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	text    string
	replies []string
}

func (c *fakeContext) Chat() *tele.Chat         { return c.chat }
func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Text() string             { return c.text }
func (c *fakeContext) Callback() *tele.Callback { return nil }
func (c *fakeContext) Reply(what interface{}, _ ...interface{}) error {
	c.replies = append(c.replies, what.(string))
	return nil
}

func groupCtx(chatID, userID int64) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: chatID, Type: tele.ChatGroup},
		sender: &tele.User{ID: userID},
	}
}

func privateCtx(userID int64) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		sender: &tele.User{ID: userID},
	}
}

// run applies mw and reports whether the handler was reached.
func run(mw tele.MiddlewareFunc, c tele.Context) (bool, error) {
	reached := false
	err := mw(func(tele.Context) error {
		reached = true
		return nil
	})(c)
	return reached, err
}

func TestWhitelistMiddleware(t *testing.T) {
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	private := NewPrivateUsers()
	mw := WhitelistMiddleware(cfg, private)

	reached, err := run(mw, privateCtx(7))
	require.NoError(t, err)
	assert.False(t, reached, "strangers are ignored in private chat")

	reached, _ = run(mw, groupCtx(-200, 7))
	assert.False(t, reached, "unlisted groups are ignored")

	reached, _ = run(mw, groupCtx(-100, 7))
	assert.True(t, reached)

	reached, _ = run(mw, privateCtx(7))
	assert.True(t, reached, "seen in a listed group, so private chat is open")
}

func TestWhitelistMiddlewareEmptyAllowsAll(t *testing.T) {
	mw := WhitelistMiddleware(&config.Config{}, NewPrivateUsers())

	reached, _ := run(mw, groupCtx(-5, 1))
	assert.True(t, reached)
	reached, _ = run(mw, privateCtx(1))
	assert.True(t, reached)
}

func TestAdminMiddleware(t *testing.T) {
	mw := AdminMiddleware(&config.Config{Admin: config.AdminConfig{IDs: []int64{1}}})

	c := groupCtx(-1, 2)
	reached, err := run(mw, c)
	require.NoError(t, err)
	assert.False(t, reached)
	require.Len(t, c.replies, 1)
	assert.Contains(t, c.replies[0], "crown")

	reached, _ = run(mw, groupCtx(-1, 1))
	assert.True(t, reached)
}

type stubAccounts struct {
	acc *model.Account
	err error
}

func (s stubAccounts) GetAccount(context.Context, int64, string) (*model.Account, error) {
	return s.acc, s.err
}

func TestPrisonMiddleware(t *testing.T) {
	t.Run("prisoner turned away", func(t *testing.T) {
		c := groupCtx(-1, 5)
		reached, err := run(PrisonMiddleware(stubAccounts{acc: &model.Account{UserID: 5, Imprisoned: true}}), c)
		require.NoError(t, err)
		assert.False(t, reached)
		require.Len(t, c.replies, 1)
		assert.Contains(t, c.replies[0], "prison")
	})

	t.Run("free subject passes", func(t *testing.T) {
		reached, _ := run(PrisonMiddleware(stubAccounts{acc: &model.Account{UserID: 5}}), groupCtx(-1, 5))
		assert.True(t, reached)
	})

	t.Run("lookup failure falls through", func(t *testing.T) {
		reached, _ := run(PrisonMiddleware(stubAccounts{err: errors.New("db down")}), groupCtx(-1, 5))
		assert.True(t, reached)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	c := groupCtx(-1, 1)
	err := RecoveryMiddleware()(func(tele.Context) error {
		panic("boom")
	})(c)
	require.NoError(t, err)
	require.Len(t, c.replies, 1)
}
