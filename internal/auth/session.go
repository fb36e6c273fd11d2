// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/automatch/internal/apperr"
)

// Sessions signs and verifies session tokens. Every process built from the same secret
// accepts tokens issued by any other.
type Sessions struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewSessions derives the signing key pair from secret. ttl of zero issues tokens that
// never expire.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	priv, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Sessions{
		privateKey: priv,
		publicKey:  priv.Public().(ed25519.PublicKey),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// CreateJWT creates a signed JWT token with "sub" = userID and, when a ttl is configured,
// an "exp" claim.
func (s *Sessions) CreateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": s.now().Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = s.now().Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies a JWT string and returns its "sub" field. Every failure maps to
// apperr.ErrInvalidToken.
func (s *Sessions) AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", apperr.ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid jwt claims", apperr.ErrInvalidToken)
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing sub in jwt", apperr.ErrInvalidToken)
	}
	return userID, nil
}
