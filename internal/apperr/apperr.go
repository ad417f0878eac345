// Package apperr defines the typed application errors that the router
// translates into HTTP error responses.
package apperr

import (
	"errors"
	"net/http"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeInternal            = "INTERNAL_SERVER_ERROR"
)

// Error is an error that knows how it should be presented to a client.
type Error struct {
	Code    string
	Message string
	Status  int
	// Details holds per-field messages for validation failures.
	Details map[string]string
	// Err is the underlying cause. It is logged but never sent to clients.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so sentinel
// values keep matching after Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// New creates an Error with an explicit status.
func New(status int, code, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

// Validation reports input that fails schema constraints.
func Validation(message string, details map[string]string) *Error {
	e := New(http.StatusBadRequest, CodeValidation, message)
	e.Details = details
	return e
}

// BadRequest reports a violated domain precondition.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// InsufficientCredits reports a debit blocked by the balance check.
func InsufficientCredits(message string) *Error {
	return New(http.StatusPaymentRequired, CodeInsufficientCredits, message)
}

// NotFound reports a missing route or entity.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// MethodNotAllowed reports a path that exists under other methods only.
func MethodNotAllowed(message string) *Error {
	return New(http.StatusMethodNotAllowed, CodeMethodNotAllowed, message)
}

// Internal reports an unexpected failure. The message is generic on purpose;
// put diagnostics in cause.
func Internal(cause error) *Error {
	e := New(http.StatusInternalServerError, CodeInternal, "Internal Server Error")
	e.Err = cause
	return e
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal for anything else.
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}
