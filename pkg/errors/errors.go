package errors

import "fmt"

// ErrorType classifies failures by how the orchestrator must react to them.
type ErrorType string

const (
	// ErrorTypeDiscovery is fatal for a run: with no items there is nothing
	// to process, so it propagates to the caller.
	ErrorTypeDiscovery ErrorType = "discovery"
	// ErrorTypeExtraction is per-item and recoverable: the item is recorded
	// as failed and the run continues.
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeCheckpoint covers corrupt or unreadable checkpoints; the run
	// degrades to a fresh start and logs a warning.
	ErrorTypeCheckpoint ErrorType = "checkpoint"
	// ErrorTypeCollision marks two distinct records that produced the same
	// fingerprinted key, logged as a data-quality anomaly.
	ErrorTypeCollision ErrorType = "collision"
	// ErrorTypeLocked means another run already holds the retailer's run lock.
	ErrorTypeLocked ErrorType = "locked"

	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries the failure class alongside the retailer and, for HTTP-level
// failures, the status code.
type Error struct {
	Type     ErrorType
	Message  string
	Retailer string
	Code     int
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Retailer != "" {
		msg = fmt.Sprintf("%s error (%s): %s", e.Type, e.Retailer, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a typed error without an underlying cause.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around an underlying cause.
func Wrap(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// DiscoveryFailed builds the fatal discovery error for a retailer.
func DiscoveryFailed(retailer string, cause error) *Error {
	return &Error{Type: ErrorTypeDiscovery, Retailer: retailer, Message: "item discovery failed", Cause: cause}
}

// ExtractionFailed builds the recoverable per-item error.
func ExtractionFailed(itemKey string, cause error) *Error {
	return &Error{Type: ErrorTypeExtraction, Message: fmt.Sprintf("extraction failed for %q", itemKey), Cause: cause}
}

// RunLocked signals that a concurrent run holds the retailer lock.
func RunLocked(retailer string, holder string) *Error {
	return &Error{Type: ErrorTypeLocked, Retailer: retailer, Message: fmt.Sprintf("run already in progress (held by %s)", holder)}
}

// IsRetryable checks if an error type should be retried.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeDiscovery, ErrorTypeExtraction, ErrorTypeCheckpoint,
		ErrorTypeCollision, ErrorTypeLocked, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
