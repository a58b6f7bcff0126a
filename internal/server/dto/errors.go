// Package dto defines the API request/response types and error contract.
//
// The dto package is the API boundary layer: it has no dependency on the
// repository packages, so internal model changes cannot leak into the wire
// format. Conversion happens in the handlers package.
package dto

import (
	"fmt"
	"maps"
	"net/http"
)

// ErrorCode classifies API errors for machine consumption.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeInvalidFormat is returned when a field has an invalid format.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrorCodeNotFound is returned when a resource is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodePageNotFound is returned when a page is not found.
	ErrorCodePageNotFound ErrorCode = "PAGE_NOT_FOUND"
	// ErrorCodeFileNotFound is returned when a file is not found.
	ErrorCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"

	// ErrorCodeConflict is returned when an optimistic update loses the
	// ETag race; details carry the current server-side page.
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeIndexContention is returned when the metadata index swap
	// budget is exhausted; the request is safe to retry.
	ErrorCodeIndexContention ErrorCode = "INDEX_CONTENTION"

	// ErrorCodeFileTooLarge is returned when an upload exceeds the limit.
	ErrorCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ErrorCodeInvalidFileType is returned for denylisted uploads.
	ErrorCodeInvalidFileType ErrorCode = "INVALID_FILE_TYPE"

	// ErrorCodeUnauthorized is returned when authentication is missing or invalid.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden is returned when the caller lacks permission.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeRateLimited is returned when a rate limit tier rejects the request.
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"

	// ErrorCodeStorageError is returned when the object store fails.
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"
	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetails is the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the standard API error response body.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that maps onto an HTTP response.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is the concrete ErrorWithStatus used by handlers.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrapped    error
}

func (e *APIError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int { return e.statusCode }

// Code returns the machine-readable error code.
func (e *APIError) Code() ErrorCode { return e.code }

// Details returns a copy of the structured details, or nil.
func (e *APIError) Details() map[string]any {
	if e.details == nil {
		return nil
	}
	return maps.Clone(e.details)
}

func (e *APIError) Unwrap() error { return e.wrapped }

// WithDetails attaches structured details and returns the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.details = details
	return e
}

// NotFound creates a 404 for the named resource kind.
func NotFound(kind string) *APIError {
	code := ErrorCodeNotFound
	switch kind {
	case "page":
		code = ErrorCodePageNotFound
	case "file":
		code = ErrorCodeFileNotFound
	}
	return &APIError{statusCode: http.StatusNotFound, code: code, message: kind + " not found"}
}

// BadRequest creates a 400 with a validation message.
func BadRequest(message string) *APIError {
	return &APIError{statusCode: http.StatusBadRequest, code: ErrorCodeValidationFailed, message: message}
}

// MissingField creates a 400 for a required field that was not provided.
func MissingField(field string) *APIError {
	return &APIError{
		statusCode: http.StatusBadRequest,
		code:       ErrorCodeValidationFailed,
		message:    field + " is required",
		details:    map[string]any{"field": field},
	}
}

// InvalidField creates a 400 for a field with an invalid value.
func InvalidField(field, reason string) *APIError {
	return &APIError{
		statusCode: http.StatusBadRequest,
		code:       ErrorCodeInvalidFormat,
		message:    fmt.Sprintf("invalid %s: %s", field, reason),
		details:    map[string]any{"field": field},
	}
}

// RateLimitExceeded creates a 429 naming the retry delay.
func RateLimitExceeded(retryAfterSeconds int) *APIError {
	return &APIError{
		statusCode: http.StatusTooManyRequests,
		code:       ErrorCodeRateLimited,
		message:    "rate limit exceeded",
		details:    map[string]any{"retryAfterSeconds": retryAfterSeconds},
	}
}

// Unauthorized creates a 401.
func Unauthorized(message string) *APIError {
	return &APIError{statusCode: http.StatusUnauthorized, code: ErrorCodeUnauthorized, message: message}
}

// Forbidden creates a 403.
func Forbidden(message string) *APIError {
	return &APIError{statusCode: http.StatusForbidden, code: ErrorCodeForbidden, message: message}
}

// Conflict creates a 409 for a lost optimistic update.
func Conflict(message string) *APIError {
	return &APIError{statusCode: http.StatusConflict, code: ErrorCodeConflict, message: message}
}

// IndexContention creates a 503 advising the caller to retry.
func IndexContention(err error) *APIError {
	return &APIError{
		statusCode: http.StatusServiceUnavailable,
		code:       ErrorCodeIndexContention,
		message:    "metadata index is contended, retry the request",
		wrapped:    err,
	}
}

// PayloadTooLarge creates a 413 naming the limit.
func PayloadTooLarge(limitBytes int64) *APIError {
	return &APIError{
		statusCode: http.StatusRequestEntityTooLarge,
		code:       ErrorCodeFileTooLarge,
		message:    fmt.Sprintf("file exceeds %d MB", limitBytes>>20),
		details:    map[string]any{"limitBytes": limitBytes},
	}
}

// UnsupportedFileType creates a 422 for denylisted uploads.
func UnsupportedFileType(message string) *APIError {
	return &APIError{statusCode: http.StatusUnprocessableEntity, code: ErrorCodeInvalidFileType, message: message}
}

// StorageError creates a 502 wrapping an object store failure.
func StorageError(message string, err error) *APIError {
	return &APIError{statusCode: http.StatusBadGateway, code: ErrorCodeStorageError, message: message, wrapped: err}
}

// InternalWithError creates a 500 wrapping err.
func InternalWithError(message string, err error) *APIError {
	return &APIError{statusCode: http.StatusInternalServerError, code: ErrorCodeInternal, message: message, wrapped: err}
}
