// Package errors defines the typed failures produced by the capture and
// analysis pipeline so callers can branch on kind instead of matching
// message substrings.
package errors

import (
	stderrors "errors"
	"fmt"
)

// DecodeError reports image bytes that could not be decoded.
type DecodeError struct {
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *DecodeError) Unwrap() error { return e.Cause }

// TransportError reports a network-level failure reaching the
// interpretation service. The next scheduled cycle retries naturally.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("interpretation request: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ServiceError reports a non-success response from the interpretation
// service. Body carries the full reply for diagnosis.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("interpretation service returned %d: %s", e.Status, e.Body)
}

// UnsupportedModalityError reports a configured model that rejected image
// input, detected from the service's reply body. Surfaced distinctly so the
// shell can suggest switching to a vision-capable model instead of showing a
// raw HTTP error.
type UnsupportedModalityError struct {
	Model  string
	Status int
}

func (e *UnsupportedModalityError) Error() string {
	return fmt.Sprintf("model %q does not accept image input; configure a vision-capable model", e.Model)
}

// MalformedResponseError reports a service reply that could not be parsed
// into a structured result. Raw retains the reply text for diagnostics.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed interpretation reply: %v (raw: %s)", e.Cause, e.Raw)
	}
	return fmt.Sprintf("malformed interpretation reply (raw: %s)", e.Raw)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is worth re-attempting: transport
// failures, rate limiting, and server-side statuses. Decode and parse
// failures are deterministic and never retryable.
func IsRetryable(err error) bool {
	var te *TransportError
	if stderrors.As(err, &te) {
		return true
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Status == 429 || se.Status >= 500
	}
	return false
}
