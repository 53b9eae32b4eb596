package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks user-correctable request errors.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError describes a rejected field of a solve request.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
