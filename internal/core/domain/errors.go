package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
)

// ErrHashing is returned when the password hashing primitive cannot run.
var ErrHashing = fmt.Errorf("%w: password hashing failed", ErrInternal)

// Token validation failures. They are distinguishable internally but all
// satisfy errors.Is(err, ErrUnauthenticated).
var (
	ErrTokenMalformed        = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrTokenInvalidSignature = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrTokenExpired          = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)

// Validation reasons.
const (
	ReasonMissingField     = "missing field"
	ReasonBadFormat        = "bad format"
	ReasonNameTooShort     = "name too short"
	ReasonPasswordTooLong  = "password too long"
	ReasonPasswordMismatch = "passwords do not match"
)

// ValidationError describes rejected input. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
