// internal/handlers/conn.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/sirupsen/logrus"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Type string            `json:"type"`
	Args []json.RawMessage `json:"args"`
}

// Conn is one connected client. The read loop owns it; the relay goroutine may touch its
// match through the hub, so session state sits behind mu.
type Conn struct {
	ID      string
	OutChan chan Frame
	logger  *logrus.Logger

	mu    sync.Mutex
	user  *models.Player
	match *models.Match
}

func NewConn(id string, logger *logrus.Logger) *Conn {
	return &Conn{ID: id, OutChan: make(chan Frame, 32), logger: logger}
}

// Write pushes a frame onto the OutChan non-blockingly. A full queue drops the frame.
func (c *Conn) Write(f Frame) {
	if f.Args == nil {
		f.Args = []json.RawMessage{}
	}
	select {
	case c.OutChan <- f:
	default:
		c.logger.Warnf("conn %s: OutChan full, dropping %q", c.ID, f.Type)
	}
}

// Emit marshals args and writes them as one frame.
func (c *Conn) Emit(typ string, args ...any) {
	raw := make([]json.RawMessage, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			c.logger.Warnf("conn %s: failed to marshal %q arg %d: %v", c.ID, typ, i, err)
			return
		}
		raw[i] = b
	}
	c.Write(Frame{Type: typ, Args: raw})
}

// WriteError reports a failed client event.
func (c *Conn) WriteError(event, msg string) {
	c.Emit("error", event, msg)
}

func (c *Conn) User() *models.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Conn) SetUser(u *models.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

func (c *Conn) Match() *models.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match
}

func (c *Conn) SetMatch(m *models.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = m
}

// clearMatch forgets the match only if it is still matchID.
func (c *Conn) clearMatch(matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.match != nil && c.match.ID == matchID {
		c.match = nil
	}
}

// refreshMatch replaces the match snapshot when m is the same match.
func (c *Conn) refreshMatch(m *models.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.match != nil && c.match.ID == m.ID {
		c.match = m
	}
}
