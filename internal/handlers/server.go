// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/auth"
	"github.com/jason-s-yu/automatch/internal/match"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/names"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/purchase"
	"github.com/jason-s-yu/automatch/internal/relay"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Metadata is the server information pushed to clients after they authenticate.
type Metadata struct {
	usersOnline atomic.Int64
}

func (m *Metadata) SetUsersOnline(n int64) {
	m.usersOnline.Store(n)
}

func (m *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int64{"usersOnline": m.usersOnline.Load()})
}

// Server carries every collaborator the websocket events need.
type Server struct {
	Logger      *logrus.Logger
	Store       *store.Store
	Sessions    *auth.Sessions
	Players     *players.Repo
	Lifecycle   *match.Lifecycle
	Matchmaker  *match.Matchmaker
	Resolver    *match.Resolver
	Purchases   *purchase.Service
	Names       *names.Filter
	Relay       *relay.Relay
	Hub         *Hub
	Metadata    *Metadata
	SignupBonus int64

	routesOnce sync.Once
	routes     map[string]route

	socketsMu sync.Mutex
	sockets   map[*websocket.Conn]struct{}
	draining  bool
	live      sync.WaitGroup
}

func (s *Server) onSignup(ctx context.Context, c *Conn, _ session, _ []json.RawMessage) error {
	p, err := s.Players.Create(ctx, s.Names.Generate(), s.SignupBonus)
	if err != nil {
		return err
	}
	token, err := s.Sessions.CreateJWT(p.ID)
	if err != nil {
		return err
	}
	c.SetUser(p)
	s.Logger.WithField("user", p.ID).Info("signup")

	c.Emit("name", p.Name)
	c.Emit("coins", s.SignupBonus, p.Coins, "signup bonus")
	c.Emit("token", token)
	c.Emit("server metadata", s.Metadata)
	return nil
}

func (s *Server) onCheckin(ctx context.Context, c *Conn, _ session, args []json.RawMessage) error {
	var token string
	if err := decodeArgs(args, &token); err != nil {
		return err
	}
	userID, err := s.Sessions.AuthenticateJWT(token)
	if err != nil {
		return err
	}
	p, err := s.Players.Get(ctx, userID)
	if err != nil {
		return err
	}
	m, err := s.Lifecycle.Current(ctx, p)
	if err != nil {
		return err
	}
	c.SetUser(p)

	c.Emit("name", p.Name)
	c.Emit("coins", 0, p.Coins, "current balance")
	if m != nil {
		c.Emit("match", m)
		if m.Status != models.StatusEnded {
			c.SetMatch(m)
			if err := s.publishPresence(ctx, m.ID, p.ID, true); err != nil {
				return err
			}
			if err := s.joinRoom(ctx, c, m.ID); err != nil {
				return err
			}
		}
	}
	c.Emit("server metadata", s.Metadata)
	return nil
}

func (s *Server) onAutomatch(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error {
	var (
		rules string
		bet   int64
	)
	if err := decodeArgs(args, &rules, &bet); err != nil {
		return err
	}
	m, err := s.Matchmaker.RequestMatch(ctx, sess.user.ID, rules, bet)
	if err != nil {
		return err
	}
	c.SetMatch(m)
	c.Emit("match", m)
	return s.joinRoom(ctx, c, m.ID)
}

func (s *Server) onMatchEvent(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error {
	var (
		eventType string
		data      json.RawMessage
	)
	if err := decodeArgs(args, &eventType, &data); err != nil {
		return err
	}
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	ev, err := relay.NewEvent(relay.EventMatchEvent, sess.user.ID, eventType, data)
	if err != nil {
		return err
	}
	return s.Relay.Publish(ctx, sess.match.ID, ev)
}

func (s *Server) onVoteForWinner(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error {
	var winnerID string
	if err := decodeArgs(args, &winnerID); err != nil {
		return err
	}
	_, err := s.Resolver.CastVote(ctx, sess.match.ID, sess.user.ID, winnerID)
	return err
}

func (s *Server) onFlagOpponent(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error {
	var reason string
	if err := decodeArgs(args, &reason); err != nil {
		return err
	}
	_, err := s.Resolver.FlagOpponent(ctx, sess.match.ID, sess.user.ID, reason)
	return err
}

func (s *Server) onGetProducts(ctx context.Context, c *Conn, _ session, _ []json.RawMessage) error {
	products, err := s.Purchases.Products(ctx)
	if err != nil {
		return err
	}
	c.Emit("products", products)
	return nil
}

func (s *Server) onVerifyPurchase(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error {
	var productID, receipt string
	if err := decodeArgs(args, &productID, &receipt); err != nil {
		return err
	}
	product, balance, err := s.Purchases.Redeem(ctx, sess.user.ID, productID, receipt)
	if err != nil {
		return err
	}
	c.Emit("coins", product.Coins, balance, "purchase verified")
	return nil
}

func (s *Server) onChangeDisplayName(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error {
	var name string
	if err := decodeArgs(args, &name); err != nil {
		return err
	}
	name, err := s.Names.Normalize(name)
	if err != nil {
		return err
	}
	if err := s.Players.Rename(ctx, sess.user.ID, name); err != nil {
		return err
	}
	renamed := *sess.user
	renamed.Name = name
	c.SetUser(&renamed)
	c.Emit("name", name)
	return nil
}

// onConnect counts the socket in the cluster-wide metadata.
func (s *Server) onConnect(ctx context.Context) {
	n, err := s.Store.HIncrBy(ctx, store.MetadataKey, store.MetadataSockets, 1)
	if err != nil {
		s.Logger.Warnf("metadata: %v", err)
		return
	}
	s.Metadata.SetUsersOnline(n)
}

// onDisconnect uncounts the socket, tells the opponent and drops the room membership.
func (s *Server) onDisconnect(ctx context.Context, c *Conn) {
	n, err := s.Store.HIncrBy(ctx, store.MetadataKey, store.MetadataSockets, -1)
	if err != nil {
		s.Logger.Warnf("metadata: %v", err)
	} else {
		s.Metadata.SetUsersOnline(max(n, 0))
	}

	u, m := c.User(), c.Match()
	if u == nil || m == nil {
		return
	}
	if err := s.publishPresence(ctx, m.ID, u.ID, false); err != nil {
		s.Logger.WithField("match", m.ID).Warnf("presence: %v", err)
	}
	s.leaveMatch(ctx, c, m.ID)
}

// joinRoom attaches c to the match room and makes sure this process hears the match channel.
func (s *Server) joinRoom(ctx context.Context, c *Conn, matchID string) error {
	s.Hub.Join(matchID, c)
	return s.Relay.Subscribe(ctx, matchID)
}

// leaveMatch forgets matchID on c and drops the local room and channel once nobody uses them.
func (s *Server) leaveMatch(ctx context.Context, c *Conn, matchID string) {
	c.clearMatch(matchID)
	s.Hub.Leave(matchID, c)
	if err := s.Relay.Release(ctx, matchID); err != nil {
		s.Logger.WithField("match", matchID).Warnf("relay release: %v", err)
	}
}

func (s *Server) publishPresence(ctx context.Context, matchID, userID string, present bool) error {
	ev, err := relay.NewEvent(relay.EventPresence, userID, present)
	if err != nil {
		return err
	}
	return s.Relay.Publish(ctx, matchID, ev)
}

// decodeArgs unmarshals positional args into dst. Missing trailing args are an error; extra
// ones are ignored.
func decodeArgs(args []json.RawMessage, dst ...any) error {
	if len(args) < len(dst) {
		return apperr.ErrInvalidArguments
	}
	for i, d := range dst {
		if err := json.Unmarshal(args[i], d); err != nil {
			return apperr.ErrInvalidArguments
		}
	}
	return nil
}
