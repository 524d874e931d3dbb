package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeChallenge represents an automated-traffic challenge page
	ErrorTypeChallenge ErrorType = "challenge"
	// ErrorTypeTimeout represents a fetch timeout
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeFetch represents other fetch/navigation failures
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeExtraction represents failure to determine a field value
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeStore represents store failures
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeRegistry represents tracked-target registry failures
	ErrorTypeRegistry ErrorType = "registry"
	// ErrorTypeAlert represents alert delivery failures
	ErrorTypeAlert ErrorType = "alert"
	// ErrorTypeReconcile represents orphan reconciliation failures
	ErrorTypeReconcile ErrorType = "reconcile"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// MonitorError represents a typed pipeline error
type MonitorError struct {
	Type    ErrorType
	URL     string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *MonitorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.URL, e.Message)
}

// Unwrap returns the underlying error
func (e *MonitorError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether another fetch attempt may succeed
func (e *MonitorError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeChallenge, ErrorTypeTimeout, ErrorTypeFetch:
		return true
	default:
		return false
	}
}

// New creates a new MonitorError
func New(errType ErrorType, url, message string, err error) *MonitorError {
	return &MonitorError{
		Type:    errType,
		URL:     url,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewChallenge creates a challenge-detected error
func NewChallenge(url string) *MonitorError {
	return New(ErrorTypeChallenge, url, "challenge page served instead of content", nil)
}

// NewTimeout creates a fetch timeout error
func NewTimeout(url string, err error) *MonitorError {
	return New(ErrorTypeTimeout, url, "fetch timed out", err)
}

// NewFetch creates a generic fetch error
func NewFetch(url, message string, err error) *MonitorError {
	return New(ErrorTypeFetch, url, message, err)
}

// NewRegistry creates a registry error
func NewRegistry(message string, err error) *MonitorError {
	return New(ErrorTypeRegistry, "", message, err)
}

// NewAlert creates an alert delivery error
func NewAlert(url string, err error) *MonitorError {
	return New(ErrorTypeAlert, url, "alert delivery failed", err)
}

// NewReconcile creates a reconciliation error
func NewReconcile(url string, err error) *MonitorError {
	return New(ErrorTypeReconcile, url, "orphan cleanup failed", err)
}

// TypeOf returns the error type of err, or empty when err is not typed
func TypeOf(err error) ErrorType {
	var me *MonitorError
	if errors.As(err, &me) {
		return me.Type
	}
	return ""
}
