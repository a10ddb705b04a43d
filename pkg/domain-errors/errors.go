// Package domainerrors provides coded errors for domain validation
// failures. Services return these so transport layers can translate them
// into stable wire codes and HTTP statuses without string matching.
//
// For infrastructure facts (record absent, store unreachable) stores
// return pkg/platform/sentinel errors instead; services translate those
// into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error category. Codes are part of
// the API contract: they appear verbatim in HTTP error envelopes.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Bracelet lifecycle failures. These are terminal validation results,
	// never retried, surfaced verbatim to the caller.
	CodeNotProvisioned    Code = "not_provisioned"
	CodeAlreadyLinked     Code = "already_linked"
	CodeInvalidState      Code = "invalid_state"
	CodeTokenMismatch     Code = "token_mismatch"
	CodeInvalidTransition Code = "invalid_transition"
	CodeTooManyAttempts   Code = "too_many_attempts"

	// CodeUnavailable marks storage faults that survived the adapter's
	// retry. Callers must not conflate it with the validation codes above.
	CodeUnavailable Code = "storage_unavailable"
)

// Error is a coded domain error. It optionally wraps a cause for
// diagnostics; the cause never reaches the wire.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors so unexpected failures never leak details.
func CodeOf(err error) Code {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the safe, user-facing message from err. Uncoded
// errors yield an empty message.
func MessageOf(err error) string {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Message
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeTokenMismatch:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyLinked, CodeInvalidState, CodeInvalidTransition, CodeNotProvisioned, CodeInvariantViolation:
		return http.StatusConflict
	case CodeTooManyAttempts:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
