package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common application errors
var (
	// ErrStateNotFound is returned by a state store that holds no state yet
	ErrStateNotFound = errors.New("state not found")

	ErrJobNotFound     = errors.New("job not found")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrJobRunning      = errors.New("job is already running")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeInvalidInput   ErrorType = "invalid_input"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeAlreadyRunning ErrorType = "already_running"
	ErrorTypeStorage        ErrorType = "storage"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeInternal       ErrorType = "internal"
)

// Error codes
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeInvalidDirectory = "INVALID_DIRECTORY"
	CodeInvalidInterval  = "INVALID_INTERVAL"
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidQuery     = "INVALID_QUERY"

	CodeEmptyInput    = "EMPTY_INPUT"
	CodeParseFailed   = "PARSE_FAILED"
	CodeNoRows        = "NO_ROWS"
	CodeInvalidTable  = "INVALID_TABLE"
	CodeMissingSource = "MISSING_SOURCE"

	CodeJobNotFound     = "JOB_NOT_FOUND"
	CodeDatasetNotFound = "DATASET_NOT_FOUND"
	CodeJobRunning      = "JOB_ALREADY_RUNNING"

	CodeStorageError = "STORAGE_ERROR"
	CodeReadFailed   = "READ_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
	CodeQueryFailed  = "QUERY_FAILED"

	CodeInvalidConfig = "INVALID_CONFIG"
	CodeInternal      = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Retryable  bool                   `json:"retryable"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	if e.Cause != nil && e.Type != ErrorTypeValidation && e.Type != ErrorTypeInvalidInput {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type and code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause attaches the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewValidationError reports bad caller-supplied parameters
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewInvalidInputError reports an empty or unparseable table
func NewInvalidInputError(code, message string) *AppError {
	return NewAppError(ErrorTypeInvalidInput, code, message)
}

// NewNotFoundError reports an unknown job or dataset
func NewNotFoundError(code, message string) *AppError {
	return NewAppError(ErrorTypeNotFound, code, message)
}

// NewJobNotFoundError reports an unknown job id
func NewJobNotFoundError(jobID string) *AppError {
	return WrapError(ErrJobNotFound, ErrorTypeNotFound, CodeJobNotFound, "Batch job not found").
		WithContext("job_id", jobID)
}

// NewDatasetNotFoundError reports an unknown dataset id
func NewDatasetNotFoundError(datasetID string) *AppError {
	return WrapError(ErrDatasetNotFound, ErrorTypeNotFound, CodeDatasetNotFound, "Dataset not found").
		WithContext("dataset_id", datasetID)
}

// NewAlreadyRunningError reports a run request for a job that is mid-run
func NewAlreadyRunningError(jobID string) *AppError {
	e := WrapError(ErrJobRunning, ErrorTypeAlreadyRunning, CodeJobRunning, "Job is already running").
		WithContext("job_id", jobID)
	e.Retryable = true
	return e
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, CodeInternal, message)
}

// NewConfigError reports an invalid configuration value
func NewConfigError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, CodeInvalidConfig, message)
}

// TypeOf returns the ErrorType of the first AppError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

func isType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsInvalidInput reports whether err is an InvalidInputError
func IsInvalidInput(err error) bool { return isType(err, ErrorTypeInvalidInput) }

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsAlreadyRunning reports whether err is an AlreadyRunningError
func IsAlreadyRunning(err error) bool { return isType(err, ErrorTypeAlreadyRunning) }

// HTTPStatusOf maps err onto an HTTP status code
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation, ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeAlreadyRunning:
		return http.StatusConflict
	case ErrorTypeConfiguration, ErrorTypeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	Detail    string    `json:"detail"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// AsAppError returns err as an AppError, wrapping unknown errors as internal
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return WrapError(err, ErrorTypeInternal, CodeInternal, "Internal error")
}
