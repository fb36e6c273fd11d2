package purchase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier bool

func (v staticVerifier) Verify(context.Context, string, string) (bool, error) {
	return bool(v), nil
}

func newService(t *testing.T, v Verifier) (*Service, *players.Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := players.NewRepo(s, 1200)
	return NewService(s, repo, v, "products", logger), repo, mr
}

func TestProducts(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := newService(t, RejectAll{})

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	require.NoError(t, mr.Set("products", `[{"id":"small","coins":100,"price":"0.99"},{"id":"big","coins":1000}]`))
	products, err = svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, Product{ID: "small", Coins: 100, Price: "0.99"}, products[0])

	require.NoError(t, mr.Set("products", `{oops`))
	_, err = svc.Products(ctx)
	assert.Error(t, err)
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	svc, repo, mr := newService(t, staticVerifier(true))
	require.NoError(t, mr.Set("products", `[{"id":"small","coins":100}]`))
	p, err := repo.Create(ctx, "buyer", 5)
	require.NoError(t, err)

	product, balance, err := svc.Redeem(ctx, p.ID, "small", "receipt")
	require.NoError(t, err)
	assert.Equal(t, int64(100), product.Coins)
	assert.Equal(t, int64(105), balance)

	_, _, err = svc.Redeem(ctx, p.ID, "huge", "receipt")
	assert.ErrorIs(t, err, apperr.ErrUnknownProduct)
}

func TestRedeemInvalidReceipt(t *testing.T) {
	ctx := context.Background()
	svc, repo, mr := newService(t, RejectAll{})
	require.NoError(t, mr.Set("products", `[{"id":"small","coins":100}]`))
	p, err := repo.Create(ctx, "buyer", 5)
	require.NoError(t, err)

	_, _, err = svc.Redeem(ctx, p.ID, "small", "forged")
	assert.ErrorIs(t, err, apperr.ErrInvalidReceipt)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Coins)
}

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["receipt"] {
		case "good":
			_, _ = w.Write([]byte(`{"valid":true}`))
		case "bad":
			_, _ = w.Write([]byte(`{"valid":false}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL)
	ctx := context.Background()

	ok, err := v.Verify(ctx, "small", "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(ctx, "small", "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Verify(ctx, "small", "boom")
	assert.Error(t, err)

	assert.IsType(t, RejectAll{}, NewVerifier(""))
}
