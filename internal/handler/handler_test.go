package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/duel"
	"royal-market-bot/internal/service"
)

func TestParseAmount(t *testing.T) {
	amount, all, err := parseAmount("1g50s")
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, currency.Gold+50*currency.Silver, amount)

	for _, arg := range []string{"all", "MAX", " all "} {
		_, all, err := parseAmount(arg)
		require.NoError(t, err)
		assert.True(t, all, arg)
	}

	for _, arg := range []string{"0", "0g", "-5", "1g1g"} {
		_, _, err = parseAmount(arg)
		assert.ErrorIs(t, err, currency.ErrInvalidAmount, arg)
	}

	_, _, err = parseAmount("lots")
	assert.ErrorIs(t, err, currency.ErrInvalidAmount)
}

func TestStripTarget(t *testing.T) {
	assert.Equal(t, []string{"5g", "rent"}, stripTarget([]string{"@bob", "5g", "rent"}))
	assert.Equal(t, []string{"5g"}, stripTarget([]string{"5g"}))
	assert.Empty(t, stripTarget(nil))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "5m 3s", formatDuration(5*time.Minute+3*time.Second))
	assert.Equal(t, "23h 0m", formatDuration(23*time.Hour))
}

func TestErrorText(t *testing.T) {
	cd := &service.CooldownError{Remaining: 90 * time.Second}
	assert.Contains(t, errorText(cd, "labour"), "1m 30s")
	assert.Contains(t, errorText(fmt.Errorf("wrapped: %w", service.ErrImprisoned), "x"), "prison")
	assert.Contains(t, errorText(duel.ErrNoPotion, "x"), "potion")
	assert.Contains(t, errorText(errors.New("db down"), "x"), "awry")
}

func concludedSession(ending duel.Ending) *duel.Session {
	s := duel.NewSession("s1", -1,
		&duel.Fighter{ID: 1, Name: "alice", Health: 100},
		&duel.Fighter{ID: 2, Name: "bob", Health: 0},
		time.Now(),
	)
	s.Result = &duel.Result{Ending: ending, WinnerID: 1, LoserID: 2}
	return s
}

func TestFormatResult(t *testing.T) {
	s := concludedSession(duel.EndDefeat)
	msg := formatResult(s, s.Result, 2*currency.Gold)
	assert.Contains(t, msg, "alice defeats bob")
	assert.Contains(t, msg, "2g")

	s = concludedSession(duel.EndTimeout)
	assert.Contains(t, formatResult(s, s.Result, 0), "dithers")

	s = concludedSession(duel.EndDraw)
	s.Result.WinnerID, s.Result.LoserID = 0, 0
	assert.Contains(t, formatResult(s, s.Result, 0), "draw")
}

func TestFormatOutcome(t *testing.T) {
	s := concludedSession(duel.EndDefeat)
	assert.Contains(t, formatOutcome(s, &duel.Outcome{Actor: 1, Action: duel.Slash, Hit: true, Damage: 12}), "12 damage")
	assert.Contains(t, formatOutcome(s, &duel.Outcome{Actor: 2, Action: duel.Thrust, Dodged: true}), "dodged")
	assert.Contains(t, formatOutcome(s, &duel.Outcome{Actor: 2, Action: duel.Flee}), "stumbles")
}

func TestHealthBar(t *testing.T) {
	assert.Equal(t, 10, strings.Count(healthBar(100), "🟥"))
	assert.Equal(t, 1, strings.Count(healthBar(3), "🟥"))
	assert.Equal(t, 0, strings.Count(healthBar(-5), "🟥"))
	assert.Equal(t, 10, strings.Count(healthBar(-5), "⬜"))
}

func TestRankLabel(t *testing.T) {
	assert.Equal(t, "🥇", rankLabel(0))
	assert.Equal(t, "🥉", rankLabel(2))
	assert.Equal(t, "4.", rankLabel(3))
}

type recordingDeleter struct {
	deleted []int
}

func (d *recordingDeleter) Delete(msg tele.Editable) error {
	id, _ := msg.MessageSig()
	n, err := strconv.Atoi(id)
	if err != nil {
		return err
	}
	d.deleted = append(d.deleted, n)
	return nil
}

func TestCleanOldMessages(t *testing.T) {
	h := NewGameHandler(nil, currency.Gold)
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	chat := &tele.Chat{ID: -7}

	h.trackMessage(&tele.Message{ID: 1, Chat: chat}, start)
	h.trackMessage(&tele.Message{ID: 2, Chat: chat}, start.Add(20*time.Minute))
	h.trackMessage(nil, start)

	d := &recordingDeleter{}
	h.cleanOldMessages(d, start.Add(MessageDeleteInterval))
	assert.Equal(t, []int{1}, d.deleted)
	require.Len(t, h.trackedMessages, 1)
	assert.Equal(t, 2, h.trackedMessages[0].MessageID)
}
