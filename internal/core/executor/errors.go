package executor

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidLocator = errors.New("locator is empty")
	ErrNilObserver    = errors.New("observer is nil")
	ErrInvalidRetries = errors.New("max retries must not be negative")
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrExhausted matches any *ExhaustedError.
	ErrExhausted = errors.New("retry budget exhausted")
	// ErrTimeout matches any *TimeoutError.
	ErrTimeout = errors.New("attempt timed out")
)

// maxErrorBody caps how much of a remote error body ends up in error strings.
const maxErrorBody = 256

// RetryableRemoteError is a non-2xx answer from the remote. It is retried and
// only reaches the caller as ExhaustedError.Last.
type RetryableRemoteError struct {
	StatusCode int
	Body       []byte
}

func (e *RetryableRemoteError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if len(body) == 0 {
		return fmt.Sprintf("remote returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.StatusCode, body)
}

// ExhaustedError is returned when every permitted attempt ended in a retryable failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// TimeoutError is returned when an attempt did not finish within its timeout.
// The run stops at that attempt; timeouts are never retried.
type TimeoutError struct {
	Attempt int
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt %d timed out after %s: %v", e.Attempt, e.Timeout, e.Err)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// TransportError is a failure to obtain any response that is not a timeout
// (bad URL, DNS, refused connection, oversized body). It is not retried.
type TransportError struct {
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
