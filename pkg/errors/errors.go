package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeParsing        ErrorType = "parsing"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error represents a Twitter API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// RetryAfter is how long the server asked us to wait, zero if unknown
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Retryable reports whether the error type should be retried
func (e *Error) Retryable() bool {
	return IsRetryable(e.Type)
}

// New creates a typed error
func New(errType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// FromStatus maps an HTTP status code to a typed error.
// Returns nil for 2xx and 3xx codes.
func FromStatus(statusCode int, message string) *Error {
	if statusCode < 400 {
		return nil
	}

	errType := ErrorTypeUnknown
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		errType = ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case statusCode == http.StatusBadRequest:
		errType = ErrorTypeInvalidRequest
	case statusCode >= 500:
		errType = ErrorTypeServerError
	}

	if message == "" {
		message = http.StatusText(statusCode)
	}

	return &Error{
		Type:    errType,
		Message: message,
		Code:    statusCode,
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case http.StatusTooManyRequests:
		return true
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
