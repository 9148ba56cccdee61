package apperror

import (
	"errors"
	"net/http"
)

// Kind is a stable error category mapped to an HTTP status by the translator
// middleware. Services signal outcomes with these kinds; only the HTTP
// boundary turns them into transport responses.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindInvalidID       Kind = "invalid_id"
	KindMissingToken    Kind = "missing_token"
	KindInvalidToken    Kind = "invalid_token"
	KindExpiredToken    Kind = "expired_token"
	KindRefreshMismatch Kind = "refresh_token_mismatch"
	KindRateLimited     Kind = "rate_limited"
	KindInternal        Kind = "internal"
)

// Error is a typed application error. Message is safe to return to clients
// for every kind except Internal, which is replaced by a generic message at
// the boundary. Errs carries the per-field messages of a validation failure.
type Error struct {
	Kind    Kind
	Message string
	Errs    []string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to its response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidID:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMissingToken, KindInvalidToken, KindExpiredToken:
		return http.StatusUnauthorized
	case KindRefreshMismatch:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a 400 error carrying one message per violated field.
func Validation(errs ...string) *Error {
	msg := "Validation failed"
	if len(errs) == 1 {
		msg = errs[0]
	}
	return &Error{Kind: KindValidation, Message: msg, Errs: errs}
}

// NotFound builds a 404 error for an absent entity.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// InvalidID builds a 400 error for a malformed identifier.
func InvalidID(msg string) *Error {
	return &Error{Kind: KindInvalidID, Message: msg}
}

// MissingToken builds a 401 error for a request without credentials.
func MissingToken() *Error {
	return &Error{Kind: KindMissingToken, Message: "Authentication token missing"}
}

// InvalidToken builds a 401 error for a token that fails signature or parse
// checks.
func InvalidToken() *Error {
	return &Error{Kind: KindInvalidToken, Message: "Invalid authentication token"}
}

// ExpiredToken builds a 401 error for a token past its expiry.
func ExpiredToken() *Error {
	return &Error{Kind: KindExpiredToken, Message: "Authentication token expired"}
}

// RefreshMismatch builds a 403 error for a refresh token that does not match
// the stored value.
func RefreshMismatch() *Error {
	return &Error{Kind: KindRefreshMismatch, Message: "Refresh token does not match"}
}

// Internal wraps an unexpected failure. The wrapped error is logged at the
// boundary but never exposed to the caller.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong", Err: err}
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// From extracts the application error from err, wrapping unknown errors as
// Internal so every failure reaching the boundary has a kind.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
