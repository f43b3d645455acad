package auth

import (
	"errors"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

var (
	// ErrInvalidToken and ErrExpToken both unwrap to types.ErrUnauthorized;
	// ErrExpToken is also a types.ErrSessionExpired.
	ErrInvalidToken      = newAuthError("invalid token")
	ErrExpToken          = newAuthError("expired token", types.ErrSessionExpired)
	ErrTokenGenerateFail = errors.New("failed to generate token")
	ErrEmptySubject      = errors.New("token subject is empty")
)

type authError struct {
	msg  string
	also []error
}

func (e *authError) Error() string { return e.msg }

func (e *authError) Unwrap() []error {
	return append([]error{types.ErrUnauthorized}, e.also...)
}

func newAuthError(msg string, also ...error) error {
	return &authError{msg: msg, also: also}
}
