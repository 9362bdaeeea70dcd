package service

import (
	"errors"
	"fmt"
)

var (
	ErrConflict           = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrLastAdmin          = errors.New("cannot delete the last administrator")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenNotActive     = errors.New("refresh token is not active")
	ErrConfiguration      = errors.New("invalid configuration")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// validationError wraps ErrValidation with the offending field.
func validationError(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}
