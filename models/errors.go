package models

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a domain failure so the HTTP layer can map it without
// inspecting messages.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindForbidden
	KindInvalidTransition
	KindValidation
	KindConflict
	KindExpired
)

// Stable error codes returned to clients
const (
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidCode       = "INVALID_CODE"
	CodeConflict          = "CONFLICT"
	CodeExpired           = "EXPIRED"
)

// AppError is a recoverable domain error surfaced to the caller
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a response status
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindExpired:
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func NewInvalidTransition(message string) *AppError {
	return &AppError{Kind: KindInvalidTransition, Code: CodeInvalidTransition, Message: message}
}

func NewValidation(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: message}
}

func NewConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Code: CodeConflict, Message: message}
}

func NewExpired(message string) *AppError {
	return &AppError{Kind: KindExpired, Code: CodeExpired, Message: message}
}

// ErrInvalidCode is returned for any OTP mismatch. It carries no detail about
// the expected value.
var ErrInvalidCode = &AppError{Kind: KindValidation, Code: CodeInvalidCode, Message: "invalid code"}

// IsKind reports whether err wraps an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
