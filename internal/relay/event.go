package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType names an event fanned out on a match channel. The same names are used for
// the events pushed to clients.
type EventType string

const (
	EventPresence     EventType = "presence"
	EventUserJoined   EventType = "user joined"
	EventMatchStarted EventType = "match started"
	EventMatchEvent   EventType = "match event"
	EventMatchStats   EventType = "match stats"
	EventMatchEnded   EventType = "match ended"
)

// arity is the number of arguments each relayed event carries.
var arity = map[EventType]int{
	EventPresence:     2, // userId, present
	EventUserJoined:   3, // userId, name, stats
	EventMatchStarted: 1, // match
	EventMatchEvent:   3, // userId, type, data
	EventMatchStats:   2, // winnerStats, loserStats
	EventMatchEnded:   1, // match
}

var ErrMalformedEvent = errors.New("malformed relay event")

// Event is a decoded relay payload. Args stay raw so they are re-emitted verbatim.
type Event struct {
	Type EventType
	Args []json.RawMessage
}

// NewEvent marshals args into an Event.
func NewEvent(typ EventType, args ...any) (Event, error) {
	if n, ok := arity[typ]; !ok || n != len(args) {
		return Event{}, fmt.Errorf("%w: %q with %d args", ErrMalformedEvent, typ, len(args))
	}
	ev := Event{Type: typ, Args: make([]json.RawMessage, len(args))}
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s arg %d: %w", typ, i, err)
		}
		ev.Args[i] = raw
	}
	return ev, nil
}

// Encode produces the wire form: a JSON array [type, args...].
func (e Event) Encode() ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(e.Args)+1)
	typ, err := json.Marshal(string(e.Type))
	if err != nil {
		return nil, err
	}
	parts = append(parts, typ)
	parts = append(parts, e.Args...)
	return json.Marshal(parts)
}

// Decode parses and validates a payload received from a match channel.
func Decode(payload []byte) (Event, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(payload, &parts); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(parts) == 0 {
		return Event{}, fmt.Errorf("%w: empty", ErrMalformedEvent)
	}

	var typ string
	if err := json.Unmarshal(parts[0], &typ); err != nil {
		return Event{}, fmt.Errorf("%w: type: %v", ErrMalformedEvent, err)
	}
	n, known := arity[EventType(typ)]
	if !known {
		return Event{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, typ)
	}
	if len(parts)-1 != n {
		return Event{}, fmt.Errorf("%w: %q expects %d args, got %d", ErrMalformedEvent, typ, n, len(parts)-1)
	}
	return Event{Type: EventType(typ), Args: parts[1:]}, nil
}
