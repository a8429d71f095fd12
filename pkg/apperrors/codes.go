package apperrors

// ErrorCode identifies the failure class independently of the HTTP status.
type ErrorCode string

const (
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"

	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// CodeProcessingFailed covers decode/resize/encode failures on a source
	// file that exists. These are hard errors, never substituted with the
	// fallback image.
	CodeProcessingFailed ErrorCode = "PROCESSING_FAILED"

	// CodeAllocationFailed covers partition directory creation failures
	// during upload.
	CodeAllocationFailed ErrorCode = "ALLOCATION_FAILED"
)
