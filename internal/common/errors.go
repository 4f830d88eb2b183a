package common

import "errors"

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ErrNotFound builds the canonical 404 error.
func ErrNotFound(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, HTTPStatus: 404}
}

// ErrValidation builds the canonical 422 error with field details.
func ErrValidation(message string, details any) *AppError {
	return &AppError{Code: "VALIDATION", Message: message, HTTPStatus: 422, Details: details}
}

// ErrConflict builds the canonical 409 error.
func ErrConflict(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: 409}
}

// ErrForbidden builds the canonical 403 error.
func ErrForbidden(message string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: message, HTTPStatus: 403}
}
