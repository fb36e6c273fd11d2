package models

import (
	"fmt"
	"strconv"

	"github.com/jason-s-yu/automatch/internal/apperr"
)

// PendingMatchID is written into a player's matchId while a matchmaking request is in
// flight, so a second concurrent request fails its claim.
const PendingMatchID = "-1"

// Player is a transient working copy of the u/{id} hash.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Coins   int64  `json:"coins"`
	MatchID string `json:"matchId,omitempty"`
	Flagged int64  `json:"flagged"`
}

// HasMatch reports whether the player references a real match (not the in-flight sentinel).
func (p *Player) HasMatch() bool {
	return p.MatchID != "" && p.MatchID != PendingMatchID
}

// DecodePlayer validates a raw hash read. The identifying field must echo id, otherwise
// the record is treated as absent.
func DecodePlayer(id string, fields map[string]string) (*Player, error) {
	if id == "" || fields["id"] != id {
		return nil, apperr.ErrUserNotFound
	}
	p := &Player{ID: id, Name: fields["name"], MatchID: fields["matchId"]}

	var err error
	if p.Coins, err = parseInt(fields, "coins"); err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	if p.Flagged, err = parseInt(fields, "flagged"); err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return p, nil
}

// Fields is the hash representation written at signup.
func (p *Player) Fields() map[string]any {
	return map[string]any{
		"id":    p.ID,
		"name":  p.Name,
		"coins": p.Coins,
	}
}

// parseInt reads an optional integer field; absent means zero.
func parseInt(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}
