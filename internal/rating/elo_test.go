package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateEvenOdds(t *testing.T) {
	e := NewElo(32)

	newW, newL := e.Update(1500, 1500)
	assert.Equal(t, 1516, newW, "winner gains K/2 at a 50% expected score")
	assert.Equal(t, 1484, newL, "loser drops the same amount")
}

func TestUpdateFavoriteGainsLess(t *testing.T) {
	e := NewElo(32)

	favW, _ := e.Update(1800, 1400)
	underW, _ := e.Update(1400, 1800)

	favGain := favW - 1800
	underGain := underW - 1400
	assert.Greater(t, underGain, favGain)
	assert.Greater(t, favGain, 0)
}

func TestUpdateIsZeroSum(t *testing.T) {
	e := NewElo(24)
	for _, pair := range [][2]int{{1200, 1200}, {1000, 1600}, {2000, 900}, {1350, 1349}} {
		w, l := e.Update(pair[0], pair[1])
		assert.Equal(t, pair[0]+pair[1], w+l, "ratings %v", pair)
	}
}

func TestUpdateFloorsAtZero(t *testing.T) {
	e := NewElo(32)

	_, newL := e.Update(10, 5)
	assert.Equal(t, 0, newL)
}

func TestNewEloDefaultK(t *testing.T) {
	assert.Equal(t, DefaultK, NewElo(0).K)
	assert.Equal(t, DefaultK, NewElo(-3).K)
}

func TestExpected(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1500, 1500), 1e-9)
	assert.InDelta(t, 1.0, Expected(1900, 1500)+Expected(1500, 1900), 1e-9)
	assert.InDelta(t, 0.909, Expected(1900, 1500), 0.001)
}
