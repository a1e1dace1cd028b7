// Package apperrors provides structured error handling for the service.
// It implements error types with machine-readable codes, HTTP status mapping,
// and retryable detection following RFC 7807.
package apperrors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// --- Common Error Constructors ---

// ModelUnavailable creates an AppError for requests arriving while the model
// failed to load or never became available. Permanent for the process
// lifetime, so not retryable against this instance.
func ModelUnavailable(cause error) *AppError {
	return &AppError{
		Code: ErrCodeModelUnavailable, Message: "The transcription model is unavailable.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false, Cause: cause,
	}
}

// ModelLoading creates an AppError for requests that gave up while the model
// was still initializing.
func ModelLoading() *AppError {
	return &AppError{
		Code: ErrCodeModelLoading, Message: "The transcription model is still loading. Please try again.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// StagingFailed creates an AppError for an upload that could not be persisted.
func StagingFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStagingFailed, Message: "Could not store the uploaded file.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// InferenceFailed creates an AppError for a transcription call that raised.
// The underlying cause is kept for logging and never serialized to clients.
func InferenceFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInferenceFailed, Message: "Transcription failed.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// InvalidInput creates an AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Internal creates an AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
