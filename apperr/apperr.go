// Package apperr defines the error taxonomy shared by the service layer
// and the HTTP handlers. Validation, not-found and authorization failures
// surface to the synchronous caller; persistence and transport failures
// are wrapped so callers can distinguish them from business outcomes.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError reports a single invalid input field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries one entry per offending field.
type ValidationError struct {
	Messages []FieldError `json:"messages"`
}

func (e *ValidationError) Error() string {
	paths := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		paths[i] = m.Path
	}
	return "invalid fields: " + strings.Join(paths, ", ")
}

// NewValidation builds a ValidationError with a generic message per path.
func NewValidation(paths ...string) *ValidationError {
	v := &ValidationError{}
	for _, p := range paths {
		v.Messages = append(v.Messages, FieldError{Path: p, Message: "must not be empty"})
	}
	return v
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// PersistenceError wraps a storage-layer failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransportError wraps a broker publish or consume failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure in %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}
