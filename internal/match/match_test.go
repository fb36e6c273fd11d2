package match

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/automatch/internal/models"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/rating"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const archiveQueue = "archive"

var testTimeouts = Timeouts{
	Pending: 2 * time.Minute,
	Active:  12 * time.Hour,
	Ended:   12 * time.Hour,
}

type harness struct {
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	store     *store.Store
	players   *players.Repo
	lifecycle *Lifecycle
	mm        *Matchmaker
	resolver  *Resolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := store.New(rdb)
	t.Cleanup(func() { _ = s.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := players.NewRepo(s, 1200)
	lc := NewLifecycle(s, testTimeouts, archiveQueue)
	return &harness{
		mr:        mr,
		rdb:       rdb,
		store:     s,
		players:   repo,
		lifecycle: lc,
		mm:        NewMatchmaker(s, repo, lc, logger, MatchmakerConfig{FlaggedLimit: 20, SampleSize: 100}),
		resolver:  NewResolver(s, repo, lc, rating.NewElo(32), logger),
	}
}

func (h *harness) player(t *testing.T, name string, coins int64) *models.Player {
	t.Helper()
	p, err := h.players.Create(context.Background(), name, coins)
	require.NoError(t, err)
	return p
}

// active pairs a and b into an active match with the given bet.
func (h *harness) active(t *testing.T, a, b *models.Player, bet int64) *models.Match {
	t.Helper()
	ctx := context.Background()
	pending, err := h.mm.RequestMatch(ctx, a.ID, "classic", bet)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, pending.Status)

	m, err := h.mm.RequestMatch(ctx, b.ID, "classic", bet)
	require.NoError(t, err)
	require.Equal(t, pending.ID, m.ID)
	require.Equal(t, models.StatusActive, m.Status)
	return m
}

func (h *harness) matchIDOf(userID string) string {
	return h.mr.HGet(store.UserKey(userID), "matchId")
}
