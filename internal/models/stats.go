package models

import "strconv"

// Stats are a player's results for one rules variant (us/{uid}/{rules}).
type Stats struct {
	UserID   string `json:"userId,omitempty"`
	Elo      int    `json:"elo"`
	Played   int    `json:"played"`
	Won      int    `json:"won"`
	Winnings int64  `json:"winnings"`
}

// DecodeStats converts a raw hash read. Missing or malformed values fall back to the
// baseline, so a player without history starts at defaultElo.
func DecodeStats(fields map[string]string, defaultElo int) Stats {
	return Stats{
		Elo:      atoiOr(fields["elo"], defaultElo),
		Played:   atoiOr(fields["played"], 0),
		Won:      atoiOr(fields["won"], 0),
		Winnings: int64(atoiOr(fields["winnings"], 0)),
	}
}

func (s Stats) Fields() map[string]any {
	return map[string]any{
		"elo":      s.Elo,
		"played":   s.Played,
		"won":      s.Won,
		"winnings": s.Winnings,
	}
}

func atoiOr(raw string, def int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
