package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("models: no matching record found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrGigUnavailable    = errors.New("gig is no longer available")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyPaid       = errors.New("booking already has a completed payment")
	ErrDuplicate         = errors.New("duplicate record")
)

// ValidationError reports bad input. Nothing is mutated when it is returned.
type ValidationError struct {
	Field   string
	Message string
	// Err optionally carries a sentinel the caller can match with errors.Is.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
