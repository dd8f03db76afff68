// Package apperr defines the typed errors the stores surface to handlers:
// not-found, conflict, and generic application failures, each carrying an
// HTTP-equivalent status code.
package apperr

import (
	"errors"
	"net/http"
)

type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a generic application error (500-equivalent).
func New(message string) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: message}
}

// NotFound reports that the named resource does not exist or is not visible
// to the caller.
func NotFound(resource string) *Error {
	return &Error{Code: http.StatusNotFound, Message: resource + " not found"}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Code: http.StatusConflict, Message: message}
}

// Code extracts the status code from err, defaulting to 500 for errors that
// are not apperr values.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	return Code(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return Code(err) == http.StatusConflict
}
