package dealroom

import (
	"fmt"
	"strings"
)

// ValidationError reports a domain rule violation. The message text names the
// violated constraint ("500 characters", "valid URL", ...) and is part of the
// caller-facing contract, not incidental.
type ValidationError struct {
	Violations []string
}

// NewValidationError builds a ValidationError from one or more violation
// messages.
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

// NotFoundError reports that no entity exists at the requested key. The
// message always contains "not found".
type NotFoundError struct {
	msg string
}

// NewNotFoundError formats a NotFoundError.
func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{msg: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string {
	return e.msg
}

// ConflictError signals a concurrent-modification rejection. The message
// always carries the "Conflict" marker callers substring-match on.
type ConflictError struct {
	msg string
}

// NewConflictError formats a ConflictError. The "Conflict: " prefix is added
// here so every instance satisfies the substring contract.
func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{msg: "Conflict: " + fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string {
	return e.msg
}

// StorageError wraps an underlying file or database failure behind a generic
// "Failed to ..." message; the cause stays reachable through Unwrap.
type StorageError struct {
	action string
	err    error
}

// NewStorageError wraps cause with an action phrase such as
// "save deal room draft" or "read deal room version".
func NewStorageError(action string, cause error) *StorageError {
	return &StorageError{action: action, err: cause}
}

func (e *StorageError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("Failed to %s data", e.action)
	}
	return fmt.Sprintf("Failed to %s data: %v", e.action, e.err)
}

func (e *StorageError) Unwrap() error {
	return e.err
}
