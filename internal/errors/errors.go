package errors

import (
	"errors"
	"fmt"
)

// Common error types for the reservation client
var (
	// Backend status errors, matched by api.APIError through errors.Is
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")

	// Token errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrNoAccessToken   = errors.New("no access token")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrMissingTokenExp = errors.New("token has no exp claim")

	// Session errors
	ErrSessionChanged = errors.New("session changed while operation was in flight")
	ErrSessionClosed  = errors.New("session manager closed")

	// Transport errors
	ErrNotReplayable = errors.New("request body cannot be replayed")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
