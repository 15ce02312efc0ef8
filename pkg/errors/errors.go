package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeInvalidGranularity indicates a time bucket size that does not divide an hour
	ErrorTypeInvalidGranularity ErrorType = "INVALID_GRANULARITY"

	// ErrorTypeMalformedTimeLabel indicates a time string that cannot be normalized to HH:MM
	ErrorTypeMalformedTimeLabel ErrorType = "MALFORMED_TIME_LABEL"

	// ErrorTypeMissingRequiredField indicates a dataset record lacking a mandatory field
	ErrorTypeMissingRequiredField ErrorType = "MISSING_REQUIRED_FIELD"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the error was caused by bad input rather than by the system.
func (e *AppError) IsClientError() bool {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeInvalidGranularity, ErrorTypeMalformedTimeLabel, ErrorTypeMissingRequiredField:
		return true
	}
	return false
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err's chain contains an AppError of type t.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewInvalidGranularityError creates an error for a granularity that does not evenly divide 60
func NewInvalidGranularityError(granularity int) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidGranularity,
		Message: fmt.Sprintf("granularity %d does not evenly divide 60 minutes", granularity),
	}
}

// NewMalformedTimeLabelError creates an error for a time string that cannot be normalized
func NewMalformedTimeLabelError(label string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeMalformedTimeLabel,
		Message: fmt.Sprintf("cannot normalize time label %q", label),
		Err:     err,
	}
}

// NewMissingRequiredFieldError creates an error for a record missing a mandatory field
func NewMissingRequiredFieldError(record, field string) *AppError {
	return &AppError{
		Type:    ErrorTypeMissingRequiredField,
		Message: fmt.Sprintf("%s is missing required field %q", record, field),
	}
}
