// Where: internal/domain/service/errors.go
// What: ConfigurationError for malformed or contradictory Service fields.
// Why: Callers match it with errors.As and report the offending function.
package service

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid Service document. Function and
// Field are empty when the problem is not tied to them.
type ConfigurationError struct {
	Function string
	Field    string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	parts := []string{"invalid service configuration"}
	if e.Function != "" {
		parts = append(parts, fmt.Sprintf("function %q", e.Function))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	msg := strings.Join(parts, ": ")
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ConfigErrorf builds a ConfigurationError with a formatted reason.
func ConfigErrorf(function, field, format string, args ...any) error {
	return &ConfigurationError{
		Function: function,
		Field:    field,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// WrapConfigError attaches a cause to a ConfigurationError.
func WrapConfigError(function, field string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Function: function, Field: field, Err: err}
}
