package errors

import (
	"errors"
	"fmt"
)

// Generic error codes shared across adapters. Domain packages (e.g.
// pkg/broker) define their own codes for domain-specific conditions and
// reserve these for the conditions that recur in every adapter.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeCancelled       = "CANCELLED"
	CodeInternal        = "INTERNAL"
)

// AppError is the structured error type used across the library. It
// carries a stable Code alongside a human-readable Message and an
// optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause so the standard errors.Is/errors.As
// continue to work through an AppError.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New constructs an AppError with the given code, message, and optional
// cause. cause may be nil.
func New(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Wrap annotates err with a message. An AppError keeps its own code and
// cause; any other error gets the generic Internal code. Use a
// domain-specific constructor instead when the failure maps to a more
// precise code.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AppError); ok {
		return &AppError{Code: ae.Code, Message: message + ": " + ae.Message, Cause: ae.Cause}
	}
	return &AppError{Code: CodeInternal, Message: message, Cause: err}
}

// Is reports whether err or any error in its chain matches target.
// Re-exported so callers only need to import this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// Re-exported so callers only need to import this package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Code returns the AppError code for err, or "" if err is not an
// AppError (or is nil).
func Code(err error) string {
	var ae *AppError
	if As(err, &ae) {
		return ae.Code
	}
	return ""
}
