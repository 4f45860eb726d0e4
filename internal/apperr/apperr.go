// Package apperr defines the error codes shared by the signing routes, the
// broker and the batch clients. Callers should use errors.As to recover the
// code and errors.Is to match the wrapped cause.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class on the wire.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidCredential Code = "INVALID_CREDENTIALS"
	CodeConfiguration     Code = "CONFIGURATION_ERROR"
	CodeS3                Code = "S3_ERROR"
	CodeGCP               Code = "GCP_ERROR"
	CodeAzure             Code = "AZURE_ERROR"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeMethodNotAllowed  Code = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge   Code = "PAYLOAD_TOO_LARGE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Status maps a code to the HTTP status the signing routes answer with.
func (c Code) Status() int {
	switch c {
	case CodeValidation, CodeInvalidCredential, CodeConfiguration:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded failure. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns a coded error carrying err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation returns a VALIDATION_ERROR with optional details.
func Validation(message string, details any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// CodeOf extracts the code from err, falling back to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
