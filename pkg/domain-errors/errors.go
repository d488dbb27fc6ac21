// Package domainerrors defines the error taxonomy shared by services and the
// HTTP edge. Every failure mode a caller can act on has its own stable Code;
// stores never return these directly (see pkg/platform/sentinel), services do.
//
// Usage:
//
//	return dErrors.New(dErrors.CodeCredentialExpired, "badge expired")
//	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load badge")
//	if dErrors.HasCode(err, dErrors.CodeDuplicateCheckin) { ... }
package domainerrors

import (
	"errors"
)

// Code is a machine-readable error kind. Values are part of the public API.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Credential and admission codes, in admission evaluation order.
const (
	CodeMalformedCredential   Code = "malformed_credential"
	CodeIncompleteCredential  Code = "incomplete_credential"
	CodeWrongCredentialKind   Code = "wrong_credential_kind"
	CodeCredentialNotFound    Code = "credential_not_found"
	CodeCredentialMismatch    Code = "credential_mismatch"
	CodeCredentialExpired     Code = "credential_expired"
	CodeEnrollmentNotApproved Code = "enrollment_not_approved"
	CodeEventNotStarted       Code = "event_not_started"
	CodeEventEnded            Code = "event_ended"
	CodeDuplicateCheckin      Code = "duplicate_checkin"
)

// Issuance and infrastructure codes.
const (
	CodeCodeGenerationExhausted Code = "code_generation_exhausted"
	CodeStorageUnavailable      Code = "storage_unavailable"
)

// retryable lists codes a caller may retry without changing the request.
// DuplicateCheckin becomes admissible once the suppression window elapses;
// CodeGenerationExhausted needs operator attention first but the request
// itself stays valid.
var retryable = map[Code]bool{
	CodeDuplicateCheckin:        true,
	CodeCodeGenerationExhausted: true,
	CodeStorageUnavailable:      true,
	CodeTimeout:                 true,
}

// Error is a domain error carrying a Code, a client-safe message and an
// optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping nil returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Storage wraps an infrastructure failure as CodeStorageUnavailable.
// Errors that already carry a domain code pass through unchanged.
func Storage(err error, message string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Code: CodeStorageUnavailable, Message: message, Err: err}
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost domain error in the chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Retryable reports whether err is worth retrying unchanged.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return retryable[CodeOf(err)]
}

// MessageOf returns the client-safe message of the outermost domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
