// internal/auth/key.go
package auth

import (
	"crypto/ed25519"
	"errors"

	"golang.org/x/crypto/argon2"
)

var ErrEmptySecret = errors.New("auth: empty secret")

// keyParams are the Argon2id parameters used to stretch the shared secret into an
// ed25519 seed. Changing them invalidates every token in circulation.
var keyParams = struct {
	salt        []byte
	memory      uint32
	iterations  uint32
	parallelism uint8
}{
	salt:        []byte("automatch/session-key/v1"),
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
}

// deriveKey turns secret into a deterministic ed25519 private key, so processes sharing
// the secret sign and verify with the same pair.
func deriveKey(secret string) (ed25519.PrivateKey, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	seed := argon2.IDKey([]byte(secret), keyParams.salt, keyParams.iterations, keyParams.memory, keyParams.parallelism, ed25519.SeedSize)
	return ed25519.NewKeyFromSeed(seed), nil
}
