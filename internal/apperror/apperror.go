// Package apperror defines the application's error taxonomy.
//
// Every layer below the HTTP handlers reports failures as one of these kinds.
// The handler layer is the only place that maps a kind to a status code, so
// services and repositories stay protocol-agnostic.
package apperror

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternal      = errors.New("internal error")
)

type AppError struct {
	Err       error  // error kind (one of the sentinels above)
	Message   string // Human-readable error message
	Field     string // Optional: field causing the error
	Reference string // Optional: opaque reference for server-side log correlation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// AlreadyExists reports a uniqueness violation on a specific field,
// e.g. AlreadyExists("account", "username", "alice").
func AlreadyExists(resource, field string, value any) *AppError {
	return &AppError{
		Err:     ErrAlreadyExists,
		Message: fmt.Sprintf("%s with %s %v already exists", resource, field, value),
		Field:   field,
	}
}

// Unauthorized indicates the caller could not be authenticated.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Internal marks an unexpected failure. The underlying error never reaches
// the client; the response carries only a generic message plus Reference.
// The caller is expected to log the original error together with the
// reference so the two can be correlated later.
func Internal() *AppError {
	return &AppError{
		Err:       ErrInternal,
		Message:   "an internal error occurred",
		Reference: xid.New().String(),
	}
}
