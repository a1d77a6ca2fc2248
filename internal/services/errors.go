package services

import (
	"errors"
	"fmt"
)

// Fault kinds returned by services. Handlers map them onto HTTP statuses.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Authentication faults. Their messages never say which check failed.
var (
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Message: "Invalid credentials."}
	ErrInvalidOTP         = &Error{Kind: ErrUnauthenticated, Message: "Invalid or expired code."}
	ErrSessionInvalid     = &Error{Kind: ErrUnauthenticated, Message: "Session expired or invalid."}
)

// Error is a client-facing fault with a message safe to return to callers.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}
