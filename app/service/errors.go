package service

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrAccountLocked      = errors.New("account is locked")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrCodeAlreadyPending = errors.New("a recovery code is already pending")
	ErrCodeExpired        = errors.New("recovery code has expired")
	ErrCodeMismatch       = errors.New("recovery code does not match")
	ErrNetwork            = errors.New("network failure")
)

// ValidationError reports a rejected input field. Field uses the JSON name
// the client sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
