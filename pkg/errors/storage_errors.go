package errors

import "fmt"

// StorageError represents a storage-specific error with additional context
type StorageError struct {
	*AppError
	StorageType string `json:"storage_type,omitempty"` // "file", "redis", "postgres"
	Operation   string `json:"operation,omitempty"`    // "load", "save", "list"
	Location    string `json:"location,omitempty"`     // path, key or table
}

// NewStorageError creates a new storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// WrapStorageError wraps a backend error with the storage type and operation
func WrapStorageError(err error, operation, storageType string) *StorageError {
	if err == nil {
		return nil
	}
	app := WrapError(err, ErrorTypeStorage, CodeStorageError,
		fmt.Sprintf("%s %s failed", storageType, operation))
	app.Retryable = storageType != "file"
	return &StorageError{
		AppError:    app,
		StorageType: storageType,
		Operation:   operation,
	}
}

// WithLocation records the path, key or table the operation touched
func (se *StorageError) WithLocation(location string) *StorageError {
	se.Location = location
	return se
}

// Error implements the error interface
func (se *StorageError) Error() string {
	if se.Location != "" {
		return fmt.Sprintf("%s (%s): %v", se.Message, se.Location, se.Cause)
	}
	return fmt.Sprintf("%s: %v", se.Message, se.Cause)
}

// Unwrap exposes the embedded AppError so errors.As and the Is* helpers
// see the storage type
func (se *StorageError) Unwrap() error {
	return se.AppError
}
