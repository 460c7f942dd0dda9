// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, missing data, type mismatches
//   - Data/Resource errors (200-299): Query failures and failed history requests
//   - Strategy errors (400-499): Signal service loading, version and runtime errors
//   - Trading errors (500-599): Order execution errors
//   - Engine errors (600-699): Session engine setup and state errors
//   - Market data errors (700-799): Market data fetching errors
//   - Callback errors (800-899): Callback execution failures
//   - Connectivity errors (900-909): Gateway disconnects, timeouts, teardown
//   - Order rejection errors (910-919): Rejected legs and exhausted retries
//   - Currency errors (920-929): Capital conversion failures
//   - Ledger errors (930-939): Ledger queries and snapshot persistence
//   - Scheduling errors (940-949): Trading hours and period grid errors
//   - Notification errors (950-959): Status delivery failures
//
// Gateway-reported events are carried as *BrokerError, which keeps the
// gateway's own numeric code separate from ErrorCode.
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeCurrencyResolution, "no quote for %s", pair)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeLedgerPersist, "failed to write snapshot", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeNotConnected) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// BrokerError is an error event reported asynchronously by the broker gateway.
// Code is the gateway's numeric code, not an ErrorCode.
type BrokerError struct {
	Code    int    // Gateway error code (e.g. 110, 202, 1100)
	ReqID   int64  // Request or order id the event refers to, -1 when global
	Message string // Gateway message
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(code int, reqID int64, message string) *BrokerError {
	return &BrokerError{
		Code:    code,
		ReqID:   reqID,
		Message: message,
	}
}

// Error implements the error interface.
func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker error %d (req %d): %s", e.Code, e.ReqID, e.Message)
}

// IsBrokerError checks if an error is a BrokerError.
// It uses errors.As to check the error chain.
func IsBrokerError(err error) bool {
	var brokerErr *BrokerError

	return errors.As(err, &brokerErr)
}

// BrokerCode extracts the gateway code from err, or 0 if err carries none.
func BrokerCode(err error) int {
	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) {
		return brokerErr.Code
	}

	return 0
}
