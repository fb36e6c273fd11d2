package models

import (
	"testing"
	"time"

	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMatchRoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	m := &Match{
		ID:      "m1",
		Rules:   "classic",
		Bet:     50,
		Player1: "alice",
		Name1:   "Alice",
		Stats1:  &Stats{Elo: 1300, Played: 4, Won: 3, Winnings: 90},
		Status:  StatusPending,
		Created: created,
	}
	fields, err := m.PendingFields()
	require.NoError(t, err)

	raw := make(map[string]string, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case string:
			raw[k] = v
		case int64:
			raw[k] = "50"
		}
	}

	got, err := DecodeMatch("m1", raw)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecodeMatchNotFound(t *testing.T) {
	_, err := DecodeMatch("m1", map[string]string{})
	assert.ErrorIs(t, err, apperr.ErrMatchNotFound)

	// a fragment created by a write against an expired key has no id
	_, err = DecodeMatch("m1", map[string]string{"p2": "bob"})
	assert.ErrorIs(t, err, apperr.ErrMatchNotFound)
}

func TestDecodeMatchMalformed(t *testing.T) {
	_, err := DecodeMatch("m1", map[string]string{"id": "m1", "p1": "a", "status": "bogus"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrMatchNotFound)

	_, err = DecodeMatch("m1", map[string]string{"id": "m1", "p1": "a", "status": "active", "bet": "x"})
	require.Error(t, err)
}

func TestPlayerNo(t *testing.T) {
	m := &Match{Player1: "a", Player2: "b"}

	n, err := m.PlayerNo("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.PlayerNo("b")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.PlayerNo("c")
	assert.ErrorIs(t, err, apperr.ErrNotAPlayerInMatch)

	pending := &Match{Player1: "a"}
	_, err = pending.PlayerNo("")
	assert.ErrorIs(t, err, apperr.ErrNotAPlayerInMatch)

	assert.Equal(t, "b", m.Opponent("a"))
	assert.Equal(t, "a", m.Opponent("b"))
	assert.Equal(t, "vote2", VoteField(2))
}

func TestDecodePlayer(t *testing.T) {
	p, err := DecodePlayer("u1", map[string]string{"id": "u1", "name": "x", "coins": "10", "matchId": "-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Coins)
	assert.Equal(t, int64(0), p.Flagged)
	assert.False(t, p.HasMatch())

	_, err = DecodePlayer("u1", map[string]string{"name": "x"})
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestDecodeStatsDefaults(t *testing.T) {
	s := DecodeStats(map[string]string{}, 1200)
	assert.Equal(t, Stats{Elo: 1200}, s)

	s = DecodeStats(map[string]string{"elo": "0", "played": "3", "won": "1", "winnings": "40"}, 1200)
	assert.Equal(t, Stats{Elo: 0, Played: 3, Won: 1, Winnings: 40}, s)
}
