package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound          = errors.New("product not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownProduct    = errors.New("remote source does not know this product")
	ErrRemoteUnavailable = errors.New("remote product source unavailable")
	ErrStoreUnavailable  = errors.New("ledger store unavailable")
	ErrCorruptState      = errors.New("stored state is corrupt")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// StoreError represents a ledger persistence failure. A StoreError returned
// from a ledger mutation is a warning: the in-memory ledger is already updated.
type StoreError struct {
	Backend   string
	Operation string
	Err       error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("%s store error during %s: %v", e.Backend, e.Operation, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}

// ResolveError describes why one resolution source produced nothing
type ResolveError struct {
	Source string
	Stage  string
	Err    error
}

func (e ResolveError) Error() string {
	return fmt.Sprintf("resolve error in %s at stage %s: %v", e.Source, e.Stage, e.Err)
}

func (e ResolveError) Unwrap() error {
	return e.Err
}

// IsPersistenceWarning reports whether err came from writing the ledger store
func IsPersistenceWarning(err error) bool {
	var se StoreError
	return errors.As(err, &se)
}
