package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 10*currency.Gold, cfg.Economy.StartBalance)
	assert.Equal(t, 5_000_000*currency.Gold, cfg.Economy.PurseCap)
	assert.Equal(t, 3, cfg.Economy.PrisonDays)
	assert.Equal(t, 10*currency.Gold, cfg.Economy.DailyReward)
	assert.Equal(t, 4*currency.Gold, cfg.Economy.Tax)
	assert.Equal(t, 5*time.Second, cfg.Economy.LockTimeout)

	rate, err := cfg.Economy.Rate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.New(2, -2)), rate.String())

	assert.Equal(t, time.Hour, cfg.Cooldowns.Window(model.CooldownLabour))
	assert.Equal(t, 24*time.Hour, cfg.Cooldowns.Window(model.CooldownDaily))
	assert.Equal(t, time.Hour, cfg.Cooldowns.Window(model.CooldownDuel))
	assert.Equal(t, time.Duration(0), cfg.Cooldowns.Window("gamble"))

	assert.Equal(t, 60*time.Second, cfg.Duel.AcceptTimeout)
	assert.Equal(t, 60*time.Second, cfg.Duel.TurnTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, currency.Gold, cfg.Games.SlotsCost)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
bot:
  token: file-token
economy:
  prison_days: 5
  timezone: Europe/London
duel:
  authorized: [7, 8]
admin:
  ids: [1]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("BOT_TOKEN", "env-token")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, 5, cfg.Economy.PrisonDays)
	loc, err := cfg.Economy.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())

	assert.True(t, cfg.Duel.IsAuthorized(7))
	assert.False(t, cfg.Duel.IsAuthorized(9))
	assert.True(t, cfg.IsAdmin(1))
	assert.False(t, cfg.IsAdmin(2))
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	bad := *cfg
	bad.Economy.InterestRate = "two percent"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Economy.InterestRate = "-0.01"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Economy.Timezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Economy.PrisonDays = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Economy.LockTimeout = -time.Second
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Duel.TurnTimeout = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Log.Level = "loud"
	assert.Error(t, bad.Validate())
}

func TestAllowLists(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(123), "empty whitelist allows all")
	assert.True(t, cfg.Duel.IsAuthorized(123), "empty duel list allows all")

	cfg.Whitelist.Chats = []int64{5}
	assert.True(t, cfg.IsChatAllowed(5))
	assert.False(t, cfg.IsChatAllowed(6))
}
