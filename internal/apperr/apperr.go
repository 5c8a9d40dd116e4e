// Package apperr defines the application error taxonomy. Every error a
// registry operation can return is one of these codes; the HTTP layer
// recovers them into the response envelope so a client always gets a
// parseable outcome instead of a transport-level failure.
package apperr

import "fmt"

type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeValidation        Code = "VALIDATION"
	CodeConflict          Code = "CONFLICT"
	CodeNotFound          Code = "NOT_FOUND"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeInvalidCredential Code = "INVALID_CREDENTIAL"
	CodeInternal          Code = "INTERNAL"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func Validation(msg string) error {
	return New(CodeValidation, msg)
}

func Conflict(msg string) error {
	return New(CodeConflict, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Permission(msg string) error {
	return New(CodePermissionDenied, msg)
}

func InvalidCredential(msg string) error {
	return New(CodeInvalidCredential, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}
