package players

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return NewRepo(s, 1200), mr
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(t)

	p, err := r.Create(ctx, "Velvet Thunder", 1000)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = r.Get(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestIDsAreTimeOrdered(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(t)

	a, err := r.Create(ctx, "a", 0)
	require.NoError(t, err)
	b, err := r.Create(ctx, "b", 0)
	require.NoError(t, err)
	assert.Less(t, a.ID, b.ID)
}

func TestRenameAndCredit(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(t)
	p, err := r.Create(ctx, "old", 10)
	require.NoError(t, err)

	require.NoError(t, r.Rename(ctx, p.ID, "new"))
	bal, err := r.Credit(ctx, p.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(35), bal)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, int64(35), got.Coins)
}

func TestStatsDefault(t *testing.T) {
	ctx := context.Background()
	r, mr := newRepo(t)

	s, err := r.Stats(ctx, "u1", "classic")
	require.NoError(t, err)
	assert.Equal(t, 1200, s.Elo)
	assert.Equal(t, "u1", s.UserID)

	mr.HSet(store.StatsKey("u1", "classic"), "elo", "1333", "played", "2")
	s, err = r.Stats(ctx, "u1", "classic")
	require.NoError(t, err)
	assert.Equal(t, 1333, s.Elo)
	assert.Equal(t, 2, s.Played)
}
