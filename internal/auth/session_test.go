package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s, err := NewSessions("foobar", 0)
	require.NoError(t, err)

	token, err := s.CreateJWT("user-1")
	require.NoError(t, err)

	sub, err := s.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokensAreSharedAcrossProcesses(t *testing.T) {
	issuer, err := NewSessions("shared", 0)
	require.NoError(t, err)
	verifier, err := NewSessions("shared", 0)
	require.NoError(t, err)
	stranger, err := NewSessions("other", 0)
	require.NoError(t, err)

	token, err := issuer.CreateJWT("user-1")
	require.NoError(t, err)

	sub, err := verifier.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	_, err = stranger.AuthenticateJWT(token)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestExpiry(t *testing.T) {
	s, err := NewSessions("foobar", time.Hour)
	require.NoError(t, err)
	issued := time.Now()
	s.now = func() time.Time { return issued }

	token, err := s.CreateJWT("user-1")
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = s.AuthenticateJWT(token)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.AuthenticateJWT(token)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestRejectsGarbageAndForeignAlgorithms(t *testing.T) {
	s, err := NewSessions("foobar", 0)
	require.NoError(t, err)

	_, err = s.AuthenticateJWT("not-a-token")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := hs.SignedString([]byte("foobar"))
	require.NoError(t, err)
	_, err = s.AuthenticateJWT(signed)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = NewSessions("", 0)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
