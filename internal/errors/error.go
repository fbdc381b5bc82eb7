package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryProtocol   Category = "protocol"
	CategoryRuntime    Category = "runtime"
	CategoryValidation Category = "validation"
	CategoryCLI        Category = "cli"
)

// WebliskError is a structured error with a code, suggestions, and
// documentation links.
type WebliskError struct {
	// Code is a unique error identifier (e.g., "E102").
	Code string

	// Category is the error type (config, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *WebliskError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *WebliskError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *WebliskError) WithSuggestion(s string) *WebliskError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *WebliskError) WithDetail(d string) *WebliskError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *WebliskError) WithDetailf(format string, args ...any) *WebliskError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *WebliskError) Wrap(err error) *WebliskError {
	e.Wrapped = err
	return e
}

// New creates a WebliskError from a registered error code.
func New(code string) *WebliskError {
	template, ok := registry[code]
	if !ok {
		return &WebliskError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &WebliskError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new WebliskError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *WebliskError {
	return &WebliskError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a WebliskError.
func FromError(err error, code string) *WebliskError {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WebliskError); ok {
		return we
	}
	return New(code).Wrap(err)
}
