// Package errors carries the error taxonomy shared by every component.
// Errors are tagged with a Code so stores, services, and the transport
// layer agree on classification without string matching.
package errors

import (
	"errors"
	"fmt"
)

type Code string

const (
	// CodeNotFound marks lookups for unknown FIs or entities. Surfaced to
	// the caller, never retried.
	CodeNotFound Code = "not_found"
	// CodeDoubleSpend marks a nullifier collision. Fatal to the
	// originating transaction.
	CodeDoubleSpend Code = "double_spend"
	// CodeValidation marks requests rejected before any write.
	CodeValidation Code = "validation"
	// CodeUnreachable marks a failed outbound call to an FI endpoint.
	CodeUnreachable Code = "unreachable"
	// CodeComplianceBlocked marks transactions the rule engine refused.
	CodeComplianceBlocked Code = "compliance_blocked"
	CodeConflict          Code = "conflict"
	CodeUnauthorized      Code = "unauthorized"
	CodeInternal          Code = "internal"
)

// Error is the concrete error type used across the ledger core.
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

// New creates a code-tagged error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a code-tagged error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while keeping the chain
// intact for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Err
		e = nil
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when
// the error is untagged.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
