package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")

	// ErrStaleWrite is returned by a store when a conditional write finds the
	// stored document no longer matches the expected guard.
	ErrStaleWrite = errors.New("stale write")
)

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

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// StateError reports a transition whose precondition does not hold, naming the
// state the listing is currently in.
type StateError struct {
	Op    Operation
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s listing in state %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
