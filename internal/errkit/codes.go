// Package errkit defines the typed error taxonomy for the relay pipeline.
//
// Every failure that crosses a component boundary carries a Code so the
// delivery layer can choose user-facing wording without string matching.
package errkit

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code string

const (
	// CodeConfiguration indicates an invalid startup configuration.
	// Fatal at process start, never produced per-request.
	CodeConfiguration Code = "CONFIGURATION"
	// CodeTokenizationUnavailable indicates the exact encoder for a model
	// is unavailable and counting degraded to a fallback. Logged as an
	// advisory, never surfaced to end users.
	CodeTokenizationUnavailable Code = "TOKENIZATION_UNAVAILABLE"
	// CodeBudgetExhausted indicates trimming produced an empty history from
	// a non-empty input: the incoming turn alone exceeds the budget.
	CodeBudgetExhausted Code = "BUDGET_EXHAUSTED"
	// CodeBackendAuth indicates the backend rejected our credentials.
	CodeBackendAuth Code = "BACKEND_AUTH"
	// CodeBackendRateLimited indicates the backend throttled the request.
	CodeBackendRateLimited Code = "BACKEND_RATE_LIMITED"
	// CodeBackendTimeout indicates the backend call exceeded its deadline.
	CodeBackendTimeout Code = "BACKEND_TIMEOUT"
	// CodeBackendMalformed indicates the backend returned an unusable response.
	CodeBackendMalformed Code = "BACKEND_MALFORMED"
	// CodeStoreUnavailable indicates a history fetch or append failed.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	// CodeUnauthorized indicates the sender is not on the grant list.
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// Error is a code-carrying error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Configuration creates a fatal configuration error.
func Configuration(msg string) *Error {
	return &Error{Code: CodeConfiguration, Message: msg}
}

// Configurationf creates a fatal configuration error with formatting.
func Configurationf(format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// BudgetExhausted creates a budget-exhausted error.
func BudgetExhausted(msg string) *Error {
	return &Error{Code: CodeBudgetExhausted, Message: msg}
}

// BackendAuth creates a backend authentication error.
func BackendAuth(msg string, cause error) *Error {
	return &Error{Code: CodeBackendAuth, Message: msg, Cause: cause}
}

// BackendRateLimited creates a backend rate-limit error.
func BackendRateLimited(msg string, cause error) *Error {
	return &Error{Code: CodeBackendRateLimited, Message: msg, Cause: cause}
}

// BackendTimeout creates a backend timeout error.
func BackendTimeout(msg string, cause error) *Error {
	return &Error{Code: CodeBackendTimeout, Message: msg, Cause: cause}
}

// BackendMalformed creates a malformed-response error.
func BackendMalformed(msg string, cause error) *Error {
	return &Error{Code: CodeBackendMalformed, Message: msg, Cause: cause}
}

// StoreUnavailable creates a store failure error.
func StoreUnavailable(msg string, cause error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: msg, Cause: cause}
}

// Unauthorized creates an authorization error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or returns fallback when err carries none.
func CodeOf(err error, fallback Code) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fallback
}
