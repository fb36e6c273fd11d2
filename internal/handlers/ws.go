// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/automatch/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// WSHandler upgrades the request and serves one client until it disconnects. Events on
// one connection are handled strictly in arrival order.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the automatch subprotocol")
			return
		}
		if !s.track(c) {
			c.Close(ShuttingDownError, "server shutting down")
			return
		}
		defer s.untrack(c)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := NewConn(uuid.NewString(), s.Logger)
		middleware.LogWebSocketConnect(s.Logger, conn.ID, r.RemoteAddr)
		s.onConnect(ctx)

		go s.writePump(ctx, c, conn)
		err = s.readPump(ctx, c, conn)

		// ctx may already be cancelled; cleanup must still reach Redis
		s.onDisconnect(context.WithoutCancel(ctx), conn)
		middleware.LogWebSocketDisconnect(s.Logger, conn.ID, r.RemoteAddr, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// track registers a live socket. It refuses new sockets once Drain started.
func (s *Server) track(c *websocket.Conn) bool {
	s.socketsMu.Lock()
	defer s.socketsMu.Unlock()
	if s.draining {
		return false
	}
	if s.sockets == nil {
		s.sockets = make(map[*websocket.Conn]struct{})
	}
	s.sockets[c] = struct{}{}
	s.live.Add(1)
	return true
}

func (s *Server) untrack(c *websocket.Conn) {
	s.socketsMu.Lock()
	delete(s.sockets, c)
	s.socketsMu.Unlock()
	s.live.Done()
}

// Drain closes every live socket with ShuttingDownError and waits until their disconnect
// cleanup ran, or ctx is done. http.Server.Shutdown does not wait for hijacked connections,
// so the process must call Drain before closing the store.
func (s *Server) Drain(ctx context.Context) error {
	s.socketsMu.Lock()
	s.draining = true
	sockets := make([]*websocket.Conn, 0, len(s.sockets))
	for c := range s.sockets {
		sockets = append(sockets, c)
	}
	s.socketsMu.Unlock()

	s.Logger.Infof("draining %d sockets", len(sockets))
	for _, c := range sockets {
		go c.Close(ShuttingDownError, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain sockets: %w", ctx.Err())
	}
}

// readPump decodes frames and dispatches them until the connection closes. It returns the
// read error unless the close was normal.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, conn *Conn) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || status == ShuttingDownError || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.Logger.WithField("conn", conn.ID).Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil || f.Type == "" {
			conn.WriteError(f.Type, "invalid arguments")
			continue
		}
		s.dispatch(ctx, conn, f)
	}
}

// writePump drains the connection's OutChan and keeps the socket alive with pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-conn.OutChan:
			data, err := json.Marshal(f)
			if err != nil {
				s.Logger.Warnf("conn %s: failed to marshal outgoing %q: %v", conn.ID, f.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.WithFields(logrus.Fields{"conn": conn.ID}).Warnf("failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.WithField("conn", conn.ID).Debugf("ping failed: %v", err)
				return
			}
		}
	}
}

// HealthHandler reports whether the coordination store is reachable.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := s.Store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "usersOnline": s.Metadata.usersOnline.Load()})
	}
}
