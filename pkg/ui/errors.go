package ui

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different types of application errors
type ErrorType int

const (
	ErrorConfig ErrorType = iota
	ErrorOpen
	ErrorIO
	ErrorShutdown
	ErrorInput
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	types := []string{
		"config", "open", "io", "shutdown", "input",
	}

	if e >= 0 && int(e) < len(types) {
		return types[e]
	}
	return "unknown"
}

// AppError represents an application-specific error
type AppError struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"cause,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the application cannot continue after this error
func (e *AppError) Fatal() bool {
	return e.Type == ErrorShutdown || e.Type == ErrorInput
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// IsFatal reports whether err is an AppError the application cannot recover
// from.
func IsFatal(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Fatal()
}
