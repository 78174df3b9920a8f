// Package errors provides the structured error taxonomy used across the service.
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents configuration shape validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeStorage represents durable store failures on persistence paths
	ErrTypeStorage ErrorType = "storage"
	// ErrTypeConfig represents startup configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeAuth represents authentication errors
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeProvider represents geo provider lookup failures
	ErrTypeProvider ErrorType = "provider"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeRateLimit represents rate limit errors
	ErrTypeRateLimit ErrorType = "rate_limit"
)

// FieldError describes a single violated field in a validation error.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Reason)
}

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType    `json:"type"`
	Message string       `json:"message"`
	Cause   error        `json:"-"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if len(e.Fields) > 0 {
		fieldParts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			fieldParts[i] = f.String()
		}
		parts = append(parts, fmt.Sprintf("fields=[%s]", strings.Join(fieldParts, "; ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a validation error carrying every violated field
func Validation(fields []FieldError) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: fmt.Sprintf("%d field(s) failed validation", len(fields)),
		Fields:  fields,
	}
}

// Storage creates a storage error for configuration persistence failures
func Storage(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeStorage,
		Message: msg,
		Cause:   cause,
	}
}

// ConfigError creates a startup configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// ProviderError creates a geo provider lookup error
func ProviderError(provider string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeProvider,
		Message: fmt.Sprintf("provider %s lookup failed", provider),
		Cause:   cause,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// ViolatedFields returns the field errors carried by a validation error, or nil.
func ViolatedFields(err error) []FieldError {
	appErr, ok := err.(*AppError)
	if !ok || appErr.Type != ErrTypeValidation {
		return nil
	}
	return appErr.Fields
}
