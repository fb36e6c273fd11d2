// Package apperr defines the client-visible failures of the matchmaking service.
// Every value here is reported to the originating connection as an "error" event and
// never terminates the connection.
package apperr

import "errors"

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAlreadyAuthenticated   = errors.New("already authenticated")
	ErrNotInMatch             = errors.New("user is not in a match")
	ErrAlreadyInMatch         = errors.New("user has a match")
	ErrWrongMatchStatus       = errors.New("wrong match status")
	ErrInvalidToken           = errors.New("invalid token")
	ErrUserNotFound           = errors.New("user not found")
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchExpired           = errors.New("match expired")
	ErrInvalidBet             = errors.New("invalid bet")
	ErrInsufficientBalance    = errors.New("out of coins")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrNotAPlayerInMatch      = errors.New("user is not player")
	ErrNameTooShort           = errors.New("name too short")
	ErrNameTooLong            = errors.New("name too long")
	ErrUnknownProduct         = errors.New("unknown product")
	ErrInvalidReceipt         = errors.New("invalid receipt")
	ErrUnknownEvent           = errors.New("unknown event")
	ErrInvalidArguments       = errors.New("invalid arguments")
)

var clientErrors = []error{
	ErrAuthenticationRequired, ErrAlreadyAuthenticated, ErrNotInMatch, ErrAlreadyInMatch,
	ErrWrongMatchStatus, ErrInvalidToken, ErrUserNotFound, ErrMatchNotFound, ErrMatchExpired,
	ErrInvalidBet, ErrInsufficientBalance, ErrAlreadyVoted, ErrNotAPlayerInMatch,
	ErrNameTooShort, ErrNameTooLong, ErrUnknownProduct, ErrInvalidReceipt,
	ErrUnknownEvent, ErrInvalidArguments,
}

// IsClientError reports whether err wraps one of the taxonomy errors above, i.e. whether
// its message is meant for the client rather than the server log.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ClientMessage returns the message of the taxonomy error err wraps, without whatever
// context was wrapped around it. ok is false for infrastructure errors.
func ClientMessage(err error) (msg string, ok bool) {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}
