// internal/handlers/hub.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/relay"
	"github.com/sirupsen/logrus"
)

// Hub groups this process's connections into rooms keyed by match id. It is the local
// delivery side of the relay.
type Hub struct {
	logger *logrus.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{logger: logger, rooms: make(map[string]map[*Conn]struct{})}
}

func (h *Hub) Join(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) Leave(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) Size(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) members(room string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		out = append(out, c)
	}
	return out
}

// Emit forwards ev to every local connection in room. A "match started" event also
// refreshes the members' match snapshot, so the creator sees the match turn active.
func (h *Hub) Emit(room string, ev relay.Event) {
	var started *models.Match
	if ev.Type == relay.EventMatchStarted {
		var m models.Match
		if err := json.Unmarshal(ev.Args[0], &m); err != nil {
			h.logger.Warnf("hub: undecodable match in %q for room %s: %v", ev.Type, room, err)
		} else {
			started = &m
		}
	}

	frame := Frame{Type: string(ev.Type), Args: ev.Args}
	for _, c := range h.members(room) {
		if started != nil {
			c.refreshMatch(started)
		}
		c.Write(frame)
	}
}

// Evict detaches every local connection from room and clears their match.
func (h *Hub) Evict(room string) {
	h.mu.Lock()
	members := h.rooms[room]
	delete(h.rooms, room)
	h.mu.Unlock()

	for c := range members {
		c.clearMatch(room)
	}
}
