package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrAlreadyVoted))
	assert.True(t, IsClientError(fmt.Errorf("vote: %w", ErrAlreadyVoted)))
	assert.False(t, IsClientError(errors.New("dial tcp: connection refused")))
	assert.False(t, IsClientError(nil))
}

func TestClientMessage(t *testing.T) {
	msg, ok := ClientMessage(fmt.Errorf("%w: token is expired", ErrInvalidToken))
	assert.True(t, ok)
	assert.Equal(t, "invalid token", msg)

	_, ok = ClientMessage(errors.New("i/o timeout"))
	assert.False(t, ok)
}
