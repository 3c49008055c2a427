package errors

import (
	"fmt"
	"strings"
)

// Category groups diagnostics by the kind of misuse they report.
type Category string

const (
	CategoryLifecycle Category = "lifecycle"
	CategorySource    Category = "source"
	CategoryCallback  Category = "callback"
)

// TetherError is a coded diagnostic with enough context to act on.
// It backs the loud dev-mode reports for lifecycle misuse; it is never
// returned across the public API, only logged.
type TetherError struct {
	// Code is a unique diagnostic identifier (e.g., "T001").
	Code string

	// Category is the diagnostic type (lifecycle, source, callback).
	Category Category

	// Message is a short description of what went wrong.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Suggestion is a hint on how to fix the misuse.
	Suggestion string

	// DocURL is a link to documentation about this diagnostic.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *TetherError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TetherError) Unwrap() error {
	return e.Wrapped
}

// Wrap attaches an underlying error to the diagnostic.
func (e *TetherError) Wrap(err error) *TetherError {
	e.Wrapped = err
	return e
}

// WithDetail replaces the detail text with a formatted message.
func (e *TetherError) WithDetail(format string, args ...any) *TetherError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion replaces the fix suggestion.
func (e *TetherError) WithSuggestion(s string) *TetherError {
	e.Suggestion = s
	return e
}

// Format renders the diagnostic as a multi-line dev-mode report.
func (e *TetherError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "ERROR %s: %s\n", e.Code, e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&b, "\n  %s\n", e.Detail)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "\n  Caused by: %v\n", e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Hint: %s\n", e.Suggestion)
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "\n  Learn more: %s\n", e.DocURL)
	}

	return b.String()
}
