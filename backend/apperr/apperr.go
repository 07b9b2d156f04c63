package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeBadRequest            = "BAD_REQUEST"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeNotFound              = "NOT_FOUND"
	CodeEmailExists           = "EMAIL_EXISTS"
	CodeAttemptNotSubmitted   = "ATTEMPT_NOT_SUBMITTED"
	CodeNoQuestionsConfigured = "NO_QUESTIONS_CONFIGURED"
	CodeFilesRequired         = "FILES_REQUIRED"
	CodeUpload                = "UPLOAD_ERROR"
	CodeRenderUnavailable     = "RENDER_UNAVAILABLE"
	CodeInternal              = "INTERNAL"
)

// Error carries the HTTP status and the machine-readable code returned to the client.
// Err is the underlying cause; it is logged but never serialized.
type Error struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

func Validation(details interface{}) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidation, Message: "Invalid input", Details: details}
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message, nil)
}

func Unauthorized() *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)
}

func NotFound(message string) *Error {
	if message == "" {
		message = "Not found"
	}
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, message, nil)
}

func FilesRequired() *Error {
	return BadRequest(CodeFilesRequired, "Selfie and ID document are required.")
}

func Upload(message string, err error) *Error {
	return New(http.StatusBadRequest, CodeUpload, message, err)
}

// Unavailable reports an upstream dependency failure. The message stays opaque.
func Unavailable(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeRenderUnavailable, "Certificate rendering is unavailable", err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "Internal server error", err)
}
