package errors

import (
	"fmt"
	"log/slog"
)

// EchoError is the structured error type for echosearch. Recoverable errors
// implement the fail-soft contract: the caller logs them and falls back to
// the pre-enhancement result, so a search request always yields a list.
type EchoError struct {
	// Code is the unique error code (e.g., "ERR_301_MODEL_TIMEOUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Model, ...).
	Category Category

	// Cause is the underlying error.
	Cause error

	// Recoverable marks errors that degrade to a safe default rather
	// than propagating to the search caller.
	Recoverable bool
}

// Error implements the error interface.
func (e *EchoError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EchoError) Unwrap() error {
	return e.Cause
}

// Is matches EchoErrors by code so errors.Is works across wrap layers.
func (e *EchoError) Is(target error) bool {
	if t, ok := target.(*EchoError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an EchoError; category and recoverability derive from the code.
func New(code, message string, cause error) *EchoError {
	return &EchoError{
		Code:        code,
		Message:     message,
		Category:    categoryFromCode(code),
		Cause:       cause,
		Recoverable: isRecoverableCode(code),
	}
}

// Wrap creates an EchoError from an existing error, keeping its message.
func Wrap(code string, err error) *EchoError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Recover is the fail-soft boundary adapter: it logs a recoverable error
// and returns the fallback value, keeping failures observable while
// preserving the "search never crashes" contract. Nil errors return the
// fallback silently.
func Recover[T any](op string, err error, fallback T) T {
	if err != nil {
		slog.Warn("recovered_to_default",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
	return fallback
}
