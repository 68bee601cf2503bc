package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound  = errors.New("source not found")
	ErrSessionNotFound = errors.New("session not found")
)

// AuthError covers a missing credential as well as HTTP 401/403
// rejections. Never retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ValidationError is an HTTP 400 rejection. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError is an HTTP 404 response. Never retried; callers map it
// to the entity-specific sentinel.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ServerError is an HTTP 5xx response. Retried up to the attempt budget.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure, or an exhausted retry
// budget wrapping the last underlying cause.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the request client may retry after err.
// Auth and validation failures short-circuit the retry loop.
func Retryable(err error) bool {
	var authErr *AuthError
	var validationErr *ValidationError
	if errors.As(err, &authErr) || errors.As(err, &validationErr) {
		return false
	}
	var serverErr *ServerError
	var networkErr *NetworkError
	return errors.As(err, &serverErr) || errors.As(err, &networkErr)
}
