package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrResource matches every *ConfigurationError.
var ErrResource = errors.New("configuration resource failed")

// Error types carried by ConfigurationError.
const (
	ErrorTypeIO       = "io"
	ErrorTypeHTTP     = "http"
	ErrorTypeParse    = "parse"
	ErrorTypeLocation = "location"
)

// ConfigurationError reports a configured resource that could not be read or
// parsed. Resolution stops at the first one.
type ConfigurationError struct {
	Location    string   `json:"location"`    // Location as configured
	Source      string   `json:"source"`      // "file" or "url"
	ErrorType   string   `json:"errorType"`   // io, http, parse or location
	Message     string   `json:"message"`     // Human-readable error message
	Details     string   `json:"details"`     // Additional details about the error
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
	Cause       error    `json:"-"`
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	msg := fmt.Sprintf("[%s/%s] %s: %s", ce.Source, ce.ErrorType, ce.Location, ce.Message)
	if ce.Cause != nil {
		msg += ": " + ce.Cause.Error()
	}
	return msg
}

func (ce *ConfigurationError) Unwrap() error { return ce.Cause }

func (ce *ConfigurationError) Is(target error) bool { return target == ErrResource }

// DetailedError returns a detailed error message with all context
func (ce *ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error in %s resource: %s", ce.Source, ce.Location))
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if ce.Cause != nil {
		parts = append(parts, fmt.Sprintf("  Cause: %v", ce.Cause))
	}

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

func newConfigurationError(loc location, errorType, message string, cause error, suggestions ...string) *ConfigurationError {
	return &ConfigurationError{
		Location:    loc.raw,
		Source:      loc.source(),
		ErrorType:   errorType,
		Message:     message,
		Cause:       cause,
		Suggestions: suggestions,
	}
}
