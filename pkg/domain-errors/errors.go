// Package domainerrors defines the error taxonomy shared by services and
// transport. Services return *Error values; handlers translate the Code into
// an HTTP status through httputil.WriteError.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure independently of the transport.
type Code string

const (
	CodeNotFound            Code = "not_found"
	CodeBadRequest          Code = "bad_request"
	CodeConflict            Code = "conflict"
	CodeUnprocessableEntity Code = "unprocessable_entity"
	CodeForbidden           Code = "forbidden"
	CodeUnauthorized        Code = "unauthorized"
	CodeValidation          Code = "validation_error"
	CodeInvalidInput        Code = "invalid_input"
	CodeInvariantViolation  Code = "invariant_violation"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal_error"
)

// Error is a domain error carrying a code, a client-safe message and optional
// structured details (for example the ids a batch operation rejected).
type Error struct {
	Code    Code
	Message string
	Details *Details
	Err     error
}

// Details holds the batch payloads returned with NotFound and
// UnprocessableEntity errors. Field names are part of the public API.
type Details struct {
	NotFoundIDs  []string      `json:"notFoundIds,omitempty"`
	InvalidItems []InvalidItem `json:"invalidItems,omitempty"`
}

// InvalidItem reports one matched record whose status did not allow the
// requested transition.
type InvalidItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Code   string `json:"code"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithNotFoundIDs returns a NotFound error reporting the missing ids.
func WithNotFoundIDs(msg string, ids []string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, Details: &Details{NotFoundIDs: ids}}
}

// WithInvalidItems returns an UnprocessableEntity error reporting the items
// whose current status rejected the operation.
func WithInvalidItems(msg string, items []InvalidItem) *Error {
	return &Error{Code: CodeUnprocessableEntity, Message: msg, Details: &Details{InvalidItems: items}}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err (or anything it wraps) is a domain error with code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
