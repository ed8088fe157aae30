package aiclient

import (
	"errors"
	"fmt"
)

// AuthError reports HTTP 401/403. Non-retryable.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d): check that the API key is valid and has the required permissions: %s", e.Status, e.Detail)
}

// PayloadTooLargeError reports HTTP 413. Non-retryable; the caller should
// lower the token budget to create smaller batches.
type PayloadTooLargeError struct {
	Detail string
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("request too large (HTTP 413): the batch exceeds the model's token limit, lower max-context-tokens to create smaller batches: %s", e.Detail)
}

// APIError reports any other non-retryable HTTP status.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned HTTP %d: %s", e.Status, e.Detail)
}

// RateLimitedError reports HTTP 429 on a single attempt. It is retried with
// the adaptive ramp and only surfaces through RetriesExhaustedError.
type RateLimitedError struct {
	RetryAfter float64
}

func (e *RateLimitedError) Error() string {
	return "rate-limited (429): the API plan's rate limit was exceeded"
}

// ServerError reports a 5xx response on a single attempt.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (HTTP %d)", e.Status)
}

// TransportError reports a timeout or connection failure on a single attempt.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RetriesExhaustedError is returned when every attempt failed with a
// retryable condition. Cause is the last observed failure.
type RetriesExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("API call failed after %d attempts, last error: %v", e.Attempts, e.Cause)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Cause }

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsPayloadTooLarge reports whether err is (or wraps) a PayloadTooLargeError.
func IsPayloadTooLarge(err error) bool {
	var target *PayloadTooLargeError
	return errors.As(err, &target)
}

// IsRateLimited reports whether err is (or wraps) a rate-limit failure,
// including one surfaced through retry exhaustion.
func IsRateLimited(err error) bool {
	var target *RateLimitedError
	return errors.As(err, &target)
}

// IsTransport reports whether err is (or wraps) a timeout/connection failure.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
