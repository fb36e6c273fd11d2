package handlers

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/automatch/internal/auth"
	"github.com/jason-s-yu/automatch/internal/match"
	"github.com/jason-s-yu/automatch/internal/names"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/purchase"
	"github.com/jason-s-yu/automatch/internal/rating"
	"github.com/jason-s-yu/automatch/internal/relay"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a full Server against an in-memory Redis with its relay running.
func newTestServer(t *testing.T) (*Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sessions, err := auth.NewSessions("test-secret", 0)
	require.NoError(t, err)

	repo := players.NewRepo(s, 1200)
	lc := match.NewLifecycle(s, match.Timeouts{Pending: 2 * time.Minute, Active: time.Hour, Ended: time.Hour}, "")
	hub := NewHub(logger)
	rel := relay.New(s, hub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	rel.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = rel.Close()
		_ = s.Close()
	})

	return &Server{
		Logger:      logger,
		Store:       s,
		Sessions:    sessions,
		Players:     repo,
		Lifecycle:   lc,
		Matchmaker:  match.NewMatchmaker(s, repo, lc, logger, match.MatchmakerConfig{FlaggedLimit: 20, SampleSize: 10}),
		Resolver:    match.NewResolver(s, repo, lc, rating.NewElo(32), logger),
		Purchases:   purchase.NewService(s, repo, purchase.RejectAll{}, "products", logger),
		Names:       names.NewFilter(3, 16, false, nil),
		Relay:       rel,
		Hub:         hub,
		Metadata:    &Metadata{},
		SignupBonus: 1000,
	}, mr
}

// nextFrame pops queued frames of c until one of type typ arrives.
func nextFrame(t *testing.T, c *Conn, typ string) Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-c.OutChan:
			if f.Type == typ {
				return f
			}
		case <-timeout:
			t.Fatalf("no %q frame", typ)
		}
	}
}

func argString(t *testing.T, f Frame, i int) string {
	t.Helper()
	require.Greater(t, len(f.Args), i)
	var s string
	require.NoError(t, json.Unmarshal(f.Args[i], &s))
	return s
}

func argInt(t *testing.T, f Frame, i int) int64 {
	t.Helper()
	require.Greater(t, len(f.Args), i)
	var n int64
	require.NoError(t, json.Unmarshal(f.Args[i], &n))
	return n
}

func frame(t *testing.T, typ string, args ...any) Frame {
	t.Helper()
	f := Frame{Type: typ, Args: make([]json.RawMessage, len(args))}
	for i, a := range args {
		raw, err := json.Marshal(a)
		require.NoError(t, err)
		f.Args[i] = raw
	}
	return f
}
