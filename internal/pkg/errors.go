package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// Custom error types
var (
	// Authorization errors
	ErrForbidden    = NewAppError("FORBIDDEN", "Access denied", http.StatusForbidden)
	ErrUnauthorized = NewAppError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)

	// User errors
	ErrUserNotFound = NewAppError("USER_NOT_FOUND", "User not found", http.StatusNotFound)

	// Entry errors
	ErrEntryNotFound      = NewAppError("ENTRY_NOT_FOUND", "File or folder not found", http.StatusNotFound)
	ErrEntryAlreadyExists = NewAppError("ENTRY_ALREADY_EXISTS", "A file or folder with this name already exists", http.StatusConflict)
	ErrEntryNotTrashed    = NewAppError("ENTRY_NOT_TRASHED", "File or folder is not in the trash", http.StatusBadRequest)
	ErrNotAFolder         = NewAppError("NOT_A_FOLDER", "Entry is not a folder", http.StatusBadRequest)
	ErrNotANote           = NewAppError("NOT_A_NOTE", "Entry is not a note", http.StatusBadRequest)
	ErrRootImmutable      = NewAppError("ROOT_IMMUTABLE", "The root folder cannot be modified", http.StatusForbidden)

	// Selection errors
	ErrEmptySelection = NewAppError("EMPTY_SELECTION", "Please select at least one file or one folder", http.StatusUnprocessableEntity)
	ErrFolderEmpty    = NewAppError("FOLDER_EMPTY", "The folder is empty", http.StatusUnprocessableEntity)

	// Storage errors
	ErrStorageProviderError = NewAppError("STORAGE_PROVIDER_ERROR", "Storage provider error", http.StatusInternalServerError)
	ErrBlobNotFound         = NewAppError("BLOB_NOT_FOUND", "Stored content not found", http.StatusNotFound)
	ErrSigningUnsupported   = NewAppError("SIGNING_UNSUPPORTED", "Storage provider does not support signed URLs", http.StatusNotImplemented)

	// Validation errors
	ErrValidationFailed = NewAppError("VALIDATION_FAILED", "Validation failed", http.StatusBadRequest)
	ErrInvalidInput     = NewAppError("INVALID_INPUT", "Invalid input data", http.StatusBadRequest)

	// System errors
	ErrInternalServer = NewAppError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrDatabaseError  = NewAppError("DATABASE_ERROR", "Database error", http.StatusInternalServerError)
)

// AppError represents an application-specific error
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same error code
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// WithDetails returns a copy of the error with details attached
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy of the error with a cause attached
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// NewAppError creates a new application error
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// IsAppError checks if error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
