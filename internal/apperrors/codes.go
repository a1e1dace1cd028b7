package apperrors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors
const (
	// ErrCodeModelUnavailable indicates the model failed to load and the
	// transcription capability is gone until the process restarts.
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	// ErrCodeModelLoading indicates the model is still initializing.
	ErrCodeModelLoading ErrorCode = "MODEL_LOADING"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeStagingFailed indicates the uploaded payload could not be persisted.
	ErrCodeStagingFailed ErrorCode = "STAGING_FAILED"
	// ErrCodeInferenceFailed indicates the transcription call raised.
	ErrCodeInferenceFailed ErrorCode = "INFERENCE_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeModelLoading:  true,
	ErrCodeStagingFailed: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
