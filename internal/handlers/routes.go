// internal/handlers/routes.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/sirupsen/logrus"
)

// requirement is a bit set of session preconditions checked before an event handler runs.
type requirement uint8

const (
	noUser requirement = 1 << iota
	withUser
	noMatch
	withMatch
	activeMatch
)

// session is the connection state captured when the preconditions passed. Handlers use it
// instead of re-reading the connection, which the relay may change concurrently.
type session struct {
	user  *models.Player
	match *models.Match
}

type handlerFunc func(ctx context.Context, c *Conn, sess session, args []json.RawMessage) error

type route struct {
	requires requirement
	handle   handlerFunc
}

func (s *Server) buildRoutes() map[string]route {
	return map[string]route{
		"signup":            {noUser, s.onSignup},
		"checkin":           {noUser, s.onCheckin},
		"automatch":         {withUser | noMatch, s.onAutomatch},
		"matchEvent":        {withUser | withMatch, s.onMatchEvent},
		"voteForWinner":     {withUser | withMatch | activeMatch, s.onVoteForWinner},
		"flagOpponent":      {withUser | withMatch | activeMatch, s.onFlagOpponent},
		"getProducts":       {withUser, s.onGetProducts},
		"verifyPurchase":    {withUser, s.onVerifyPurchase},
		"changeDisplayName": {withUser, s.onChangeDisplayName},
	}
}

// check evaluates req against the connection's current state.
func (s *Server) check(ctx context.Context, c *Conn, req requirement) (session, error) {
	sess := session{user: c.User(), match: c.Match()}

	if req&noUser != 0 && sess.user != nil {
		return sess, apperr.ErrAlreadyAuthenticated
	}
	if req&withUser != 0 && sess.user == nil {
		return sess, apperr.ErrAuthenticationRequired
	}
	if req&noMatch != 0 && sess.match != nil {
		// nothing tells the connection when its match expires by TTL
		if err := s.reload(ctx, c, &sess); err != nil {
			return sess, err
		}
		if sess.match != nil {
			return sess, apperr.ErrAlreadyInMatch
		}
	}
	if req&withMatch != 0 && sess.match == nil {
		return sess, apperr.ErrNotInMatch
	}
	if req&activeMatch != 0 && sess.match.Status != models.StatusActive {
		// the "match started" broadcast may have raced our subscription
		if sess.match.Status == models.StatusPending {
			if err := s.reload(ctx, c, &sess); err != nil {
				return sess, err
			}
			if sess.match == nil {
				return sess, apperr.ErrMatchNotFound
			}
		}
		if sess.match.Status != models.StatusActive {
			return sess, apperr.ErrWrongMatchStatus
		}
	}
	return sess, nil
}

// reload replaces the session's match with the stored record. A match that expired or
// already ended is dropped from the connection and sess.match becomes nil.
func (s *Server) reload(ctx context.Context, c *Conn, sess *session) error {
	fresh, err := s.Lifecycle.Get(ctx, sess.match.ID)
	if err != nil && !errors.Is(err, apperr.ErrMatchNotFound) {
		return err
	}
	if err != nil || fresh.Status == models.StatusEnded {
		s.leaveMatch(ctx, c, sess.match.ID)
		sess.match = nil
		return nil
	}
	c.refreshMatch(fresh)
	sess.match = fresh
	return nil
}

// dispatch runs one inbound frame. Any failure becomes a single error frame naming the
// event; infrastructure failures are logged and reported generically.
func (s *Server) dispatch(ctx context.Context, c *Conn, f Frame) {
	s.routesOnce.Do(func() { s.routes = s.buildRoutes() })
	err := s.run(ctx, c, f)
	if err == nil {
		return
	}
	if msg, ok := apperr.ClientMessage(err); ok {
		s.Logger.WithFields(logrus.Fields{"conn": c.ID, "event": f.Type}).Debugf("rejected: %v", err)
		c.WriteError(f.Type, msg)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.Logger.WithFields(logrus.Fields{"conn": c.ID, "event": f.Type}).Errorf("handler failed: %v", err)
	c.WriteError(f.Type, "internal error")
}

func (s *Server) run(ctx context.Context, c *Conn, f Frame) error {
	r, ok := s.routes[f.Type]
	if !ok {
		return apperr.ErrUnknownEvent
	}
	sess, err := s.check(ctx, c, r.requires)
	if err != nil {
		return err
	}
	return r.handle(ctx, c, sess, f.Args)
}
