package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/automatch/internal/apperr"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

func (s Status) valid() bool {
	return s == StatusPending || s == StatusActive || s == StatusEnded
}

type Outcome string

const (
	OutcomeNormal   Outcome = "normal"
	OutcomeConflict Outcome = "conflict"
	OutcomeFlagged  Outcome = "flagged"
)

// Hash field names of m/{id} that are written individually.
const (
	FieldStatus  = "status"
	FieldPlayer1 = "p1"
	FieldPlayer2 = "p2"
	FieldOutcome = "outcome"
	FieldID      = "id"
)

// Match is a transient working copy of the m/{id} hash.
type Match struct {
	ID         string     `json:"id"`
	Rules      string     `json:"rules"`
	Bet        int64      `json:"bet"`
	Player1    string     `json:"p1"`
	Player2    string     `json:"p2,omitempty"`
	Name1      string     `json:"name1,omitempty"`
	Name2      string     `json:"name2,omitempty"`
	Stats1     *Stats     `json:"stats1,omitempty"`
	Stats2     *Stats     `json:"stats2,omitempty"`
	Status     Status     `json:"status"`
	Created    time.Time  `json:"created"`
	Started    *time.Time `json:"started,omitempty"`
	Ended      *time.Time `json:"ended,omitempty"`
	Outcome    Outcome    `json:"outcome,omitempty"`
	WinnerID   string     `json:"winnerId,omitempty"`
	FlagReason string     `json:"flagReason,omitempty"`
	Vote1      string     `json:"vote1,omitempty"`
	Vote2      string     `json:"vote2,omitempty"`
}

// PlayerNo returns 1 or 2 for a participant.
func (m *Match) PlayerNo(userID string) (int, error) {
	switch {
	case userID == "":
		return 0, apperr.ErrNotAPlayerInMatch
	case userID == m.Player1:
		return 1, nil
	case userID == m.Player2:
		return 2, nil
	}
	return 0, apperr.ErrNotAPlayerInMatch
}

// Opponent returns the other participant's id, or "" if userID is not player 1 and no
// second player joined yet.
func (m *Match) Opponent(userID string) string {
	if userID == m.Player1 {
		return m.Player2
	}
	return m.Player1
}

// VoteField is the hash field holding player n's vote.
func VoteField(playerNo int) string {
	return fmt.Sprintf("vote%d", playerNo)
}

// PendingFields is the full record persisted when a match is created.
func (m *Match) PendingFields() (map[string]any, error) {
	fields := map[string]any{
		FieldID:      m.ID,
		"rules":      m.Rules,
		"bet":        m.Bet,
		FieldPlayer1: m.Player1,
		"name1":      m.Name1,
		"created":    formatTime(m.Created),
		FieldStatus:  string(m.Status),
	}
	if m.Stats1 != nil {
		raw, err := json.Marshal(m.Stats1)
		if err != nil {
			return nil, fmt.Errorf("encode stats1: %w", err)
		}
		fields["stats1"] = string(raw)
	}
	return fields, nil
}

// DecodeMatch validates a raw hash read. A record whose id field does not echo id is
// treated as absent (expired, or a fragment left by a write that raced expiry).
func DecodeMatch(id string, fields map[string]string) (*Match, error) {
	if id == "" || fields[FieldID] != id {
		return nil, apperr.ErrMatchNotFound
	}

	m := &Match{
		ID:         id,
		Rules:      fields["rules"],
		Player1:    fields[FieldPlayer1],
		Player2:    fields[FieldPlayer2],
		Name1:      fields["name1"],
		Name2:      fields["name2"],
		Status:     Status(fields[FieldStatus]),
		Outcome:    Outcome(fields[FieldOutcome]),
		WinnerID:   fields["winnerId"],
		FlagReason: fields["flagReason"],
		Vote1:      fields["vote1"],
		Vote2:      fields["vote2"],
	}
	if !m.Status.valid() {
		return nil, fmt.Errorf("match %s: invalid status %q", id, m.Status)
	}
	if m.Player1 == "" {
		return nil, fmt.Errorf("match %s: missing p1", id)
	}

	var err error
	if m.Bet, err = parseInt(fields, "bet"); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	if m.Stats1, err = parseStats(fields["stats1"]); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	if m.Stats2, err = parseStats(fields["stats2"]); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	if created, err := parseTime(fields["created"]); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	} else if created != nil {
		m.Created = *created
	}
	if m.Started, err = parseTime(fields["started"]); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	if m.Ended, err = parseTime(fields["ended"]); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatTime is the timestamp encoding used in every match field.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("timestamp %q: %w", raw, err)
	}
	return &t, nil
}

func parseStats(raw string) (*Stats, error) {
	if raw == "" {
		return nil, nil
	}
	var s Stats
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &s, nil
}
