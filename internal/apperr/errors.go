// Package apperr defines the error taxonomy shared by the store, service and transports.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrStorage       = errors.New("storage failure")
)

// ValidationError carries a message meant for the end user. It matches
// ErrValidation with errors.Is, and also Cause when one is set.
type ValidationError struct {
	Msg   string
	Cause error
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Cause != nil && errors.Is(e.Cause, target))
}

// Invalid returns a ValidationError with the given message.
func Invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// Duplicate returns a ValidationError that also matches ErrAlreadyExists.
func Duplicate(msg string) error {
	return &ValidationError{Msg: msg, Cause: ErrAlreadyExists}
}
