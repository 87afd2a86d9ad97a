// Package fetch implements the single-attempt network fetch primitive.
//
// This package contains:
//   - Fetcher interface: one GET against a locator, bounded by a timeout
//   - HTTPFetcher: net/http implementation with health tracking
//   - ErrTimeout: the signal returned when an attempt does not finish in time
package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrTimeout is wrapped by Fetch errors when the attempt did not complete
	// within its timeout (connect, headers, or body read).
	ErrTimeout = errors.New("fetch timed out")

	// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Fetcher performs one fetch attempt.
//
// A response is returned for every status code, 2xx or not; the caller decides
// what a status means. A non-nil error means no usable response was obtained.
// Body is always read fully before Fetch returns.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, timeout time.Duration) (Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locator string, timeout time.Duration) (Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, locator string, timeout time.Duration) (Response, error) {
	return f(ctx, locator, timeout)
}

// Response is a fully read remote response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HealthStatus represents the health state of a fetcher.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Requests      int           `json:"requests"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}
