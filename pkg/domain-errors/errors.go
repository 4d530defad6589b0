// Package domainerrors provides code-tagged errors shared across the domain
// services. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors at the boundary so callers can branch on
// the code without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers. Codes are stable; messages are not.
type Code string

const (
	// CodeInvalidInput marks malformed input rejected at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation marks input that parsed but failed a business rule.
	// Non-retryable without correcting the input.
	CodeValidation Code = "validation"
	// CodeNotFound marks a missing resource.
	CodeNotFound Code = "not_found"
	// CodeConflict marks duplicate/blocked/already-resolved states. Retry
	// only after the underlying state changes.
	CodeConflict Code = "conflict"
	// CodeForbidden marks an authorization failure.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable marks a transient infrastructure failure (storage,
	// broker). Safe to retry with backoff.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout marks a deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks an unexpected failure. Never user-actionable.
	CodeInternal Code = "internal"
)

// DomainError carries a code plus a user-presentable message. The message
// must never leak internal identifiers or stack state.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a coded error with a stable, user-actionable message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause is
// preserved for errors.Is/As chains but excluded from user-facing output
// by transport layers.
func Wrap(cause error, code Code, message string) error {
	return &DomainError{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode, matching call sites that read
// dErrors.Is(err, dErrors.CodeConflict).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for
// untagged errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
