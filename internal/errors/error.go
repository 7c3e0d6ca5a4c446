package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category represents the type of error.
type Category string

const (
	CategoryStorage    Category = "storage"
	CategorySync       Category = "sync"
	CategoryValidation Category = "validation"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// PanelError is a structured error with a code, explanation and hint.
type PanelError struct {
	// Code is a unique error identifier (e.g., "E140").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Status is the HTTP status reported by the panel API.
	Status int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PanelError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PanelError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *PanelError) WithSuggestion(s string) *PanelError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *PanelError) WithDetail(d string) *PanelError {
	e.Detail = d
	return e
}

// WithStatus overrides the HTTP status.
func (e *PanelError) WithStatus(status int) *PanelError {
	e.Status = status
	return e
}

// Wrap wraps another error.
func (e *PanelError) Wrap(err error) *PanelError {
	e.Wrapped = err
	return e
}

// HTTPStatus returns the status to report, defaulting to 500.
func (e *PanelError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// New creates a PanelError from a registered error code.
func New(code string) *PanelError {
	template, ok := registry[code]
	if !ok {
		return &PanelError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PanelError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		Status:   template.Status,
	}
}

// Newf creates a new PanelError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PanelError {
	return &PanelError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a PanelError. Errors that already
// carry a PanelError in their chain are returned unchanged.
func FromError(err error, code string) *PanelError {
	if err == nil {
		return nil
	}
	var pe *PanelError
	if stderrors.As(err, &pe) {
		return pe
	}
	return New(code).Wrap(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
