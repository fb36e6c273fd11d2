// internal/rating/elo.go
package rating

import "math"

// DefaultK is the sensitivity used when none is configured.
const DefaultK = 32.0

// Elo is a paired-comparison rating update for two-player results.
type Elo struct {
	// K scales how far a single result moves both ratings. At even odds the winner
	// gains K/2 and the loser drops K/2.
	K float64
}

// NewElo returns an Elo engine, substituting DefaultK for a non-positive k.
func NewElo(k float64) Elo {
	if k <= 0 {
		k = DefaultK
	}
	return Elo{K: k}
}

// Expected is the probability that a player rated a beats a player rated b,
// 1/(1+10^((b-a)/400)).
func Expected(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// Update returns the new (winner, loser) ratings. The winner gains exactly what the
// loser drops, so the exchange is symmetric; ratings never go below zero.
func (e Elo) Update(winner, loser int) (int, int) {
	delta := int(math.Round(e.K * (1 - Expected(winner, loser))))

	newWinner := winner + delta
	newLoser := loser - delta
	if newLoser < 0 {
		newLoser = 0
	}
	return newWinner, newLoser
}
