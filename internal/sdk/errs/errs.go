// Package errs defines the error codes shared by the core packages and the
// HTTP layer. Core code returns *Error values; the app package turns them into
// response envelopes without inspecting messages.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for the caller.
type Code string

const (
	InvalidArgument      Code = "validation_error"
	Unauthenticated      Code = "unauthenticated"
	InvalidCredentials   Code = "invalid_credentials"
	PermissionDenied     Code = "forbidden"
	NotFound             Code = "not_found"
	DuplicateEmail       Code = "duplicate_email"
	DuplicateCategory    Code = "duplicate_category"
	UnsupportedMediaType Code = "unsupported_media_type"
	PayloadTooLarge      Code = "payload_too_large"
	Internal             Code = "internal"
)

var codeStatus = map[Code]int{
	InvalidArgument:      http.StatusBadRequest,
	Unauthenticated:      http.StatusUnauthorized,
	InvalidCredentials:   http.StatusUnauthorized,
	PermissionDenied:     http.StatusForbidden,
	NotFound:             http.StatusNotFound,
	DuplicateEmail:       http.StatusConflict,
	DuplicateCategory:    http.StatusConflict,
	UnsupportedMediaType: http.StatusBadRequest,
	PayloadTooLarge:      http.StatusRequestEntityTooLarge,
	Internal:             http.StatusInternalServerError,
}

// Error is a classified failure. Fields holds per-field validation details.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	err     error
}

// New wraps err with a code. The wrapped error's text is never sent to clients.
func New(code Code, err error) *Error {
	msg := string(code)
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Message: msg, err: err}
}

// Newf creates an error with a formatted, client-safe message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates an InvalidArgument error with field details.
func Validation(fields map[string]string) *Error {
	return &Error{Code: InvalidArgument, Message: "validation failed", Fields: fields}
}

func (e *Error) Error() string {
	if e.err != nil && e.err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// HTTPStatus returns the status code the error is reported with.
func (e *Error) HTTPStatus() int {
	if status, ok := codeStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err, or Internal if err is unclassified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
