// Package repository defines error types that are reused across multiple
// repositories, services and handlers. These sentinel values allow higher
// layers to distinguish between different failure scenarios without
// inspecting status codes. For example, ErrForbidden indicates that the
// current user is not allowed to act on a resource owned by someone else,
// while ErrInvalidState signals that a booking cannot make the requested
// transition from its current status.
package repository

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrValidation is returned when required input is missing or malformed.
// Services raise it before any network call; a 400 or 422 from the backend
// maps to it as well. Handlers re-render the form with a message.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized is returned on a 401. By the time a caller sees it the
// session has already been expired; handlers redirect to the login page.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into a 403 page.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned on a 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the backend reports a 409, e.g. a duplicate
// registration email.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a booking cannot move to the requested
// status, such as paying a booking that is not APPROVED.
var ErrInvalidState = errors.New("invalid booking state")

// ErrUnavailable covers 5xx responses and transport failures.
var ErrUnavailable = errors.New("backend unavailable")

// APIError describes a non-2xx response from the backend. It unwraps to one
// of the sentinels above so callers can use errors.Is.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Unwrap() error { return kindOf(e.StatusCode) }

func kindOf(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	default:
		return ErrUnavailable
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
