package errors

import (
	"fmt"
	"strings"
)

// ValidationErrorDetail describes one rejected field
type ValidationErrorDetail struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

// ValidationErrors collects field validation failures, e.g. while checking
// configuration
type ValidationErrors struct {
	Message string                  `json:"message"`
	Errors  []ValidationErrorDetail `json:"errors"`
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors(message string) *ValidationErrors {
	return &ValidationErrors{Message: message}
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field, code, message string, value interface{}) {
	ve.Errors = append(ve.Errors, ValidationErrorDetail{
		Field:   field,
		Value:   value,
		Message: message,
		Code:    code,
	})
}

// HasErrors checks if there are any validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return fmt.Sprintf("%s: %s", ve.Message, strings.Join(parts, "; "))
}

// AsAppError converts the collected errors into a single ValidationError
func (ve *ValidationErrors) AsAppError() *AppError {
	return WrapError(ve, ErrorTypeValidation, CodeInvalidParameter, ve.Error())
}

// NewFieldValidationError creates a ValidationError for a single field
func NewFieldValidationError(field, code, message string) *AppError {
	return NewValidationError(code, message).WithContext("field", field)
}
