// Package apperrors provides coded errors shared by services and transports.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping.
type Code string

const (
	ErrCodeValidation   Code = "validation"
	ErrCodeUnauthorized Code = "unauthorized"
	ErrCodeForbidden    Code = "forbidden"
	ErrCodeNotFound     Code = "not_found"
	ErrCodeConflict     Code = "conflict"
	ErrCodeIntegrity    Code = "integrity"
	ErrCodeUnavailable  Code = "unavailable"
	ErrCodeInternal     Code = "internal"
)

// Error is a coded application error. Message is safe to show to end users.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, apperrors.New(code, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func Validation(msg string) *Error   { return New(ErrCodeValidation, msg) }
func Unauthorized(msg string) *Error { return New(ErrCodeUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(ErrCodeForbidden, msg) }
func Conflict(msg string) *Error     { return New(ErrCodeConflict, msg) }
func Integrity(msg string) *Error    { return New(ErrCodeIntegrity, msg) }

// NotFound reports a missing resource by kind and identifier.
func NotFound(resource, id string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s %q not found", resource, id))
}

func Unavailable(msg string, err error) *Error { return Wrap(err, ErrCodeUnavailable, msg) }
func Internal(msg string, err error) *Error    { return Wrap(err, ErrCodeInternal, msg) }

// CodeOf returns the code of the outermost *Error in the chain, or
// ErrCodeInternal for uncoded errors. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the user-facing message for err. Uncoded errors are hidden
// behind a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == ErrCodeInternal {
			return "internal error"
		}
		return e.Message
	}
	return "internal error"
}
