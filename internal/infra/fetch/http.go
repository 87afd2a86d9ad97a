package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultMaxBodyBytes bounds how much of a response body is buffered.
const DefaultMaxBodyBytes int64 = 32 << 20

// HTTPFetcher implements Fetcher with HTTP GET requests.
type HTTPFetcher struct {
	name         string
	userAgent    string
	maxBodyBytes int64
	httpClient   *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodyBytes limits the response body size. Values <= 0 keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *HTTPFetcher) {
		f.httpClient.Transport = rt
	}
}

// NewHTTPFetcher creates a new HTTP fetcher.
// The client has no global timeout; each Fetch carries its own. Redirects
// are not followed, so a 3xx comes back as a non-2xx Response.
func NewHTTPFetcher(name string, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		name:         name,
		maxBodyBytes: DefaultMaxBodyBytes,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs one GET against locator. The timeout covers connecting,
// waiting for headers and reading the whole body.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string, timeout time.Duration) (Response, error) {
	start := time.Now()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		f.recordFailure()
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.recordFailure()
		return Response{}, transportError(ctx, "fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		f.recordFailure()
		return Response{}, transportError(ctx, "read response", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		f.recordFailure()
		return Response{}, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBodyBytes)
	}

	out := Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}

	if out.OK() {
		f.recordSuccess(time.Since(start))
	} else {
		f.recordFailure()
	}

	return out, nil
}

// Name returns the fetcher's name.
func (f *HTTPFetcher) Name() string {
	return f.name
}

// Health returns the fetcher's health status.
func (f *HTTPFetcher) Health() HealthStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.health
}

// Close cleans up resources.
func (f *HTTPFetcher) Close() error {
	f.httpClient.CloseIdleConnections()
	return nil
}

// transportError maps a failed request to ErrTimeout when the attempt's own
// deadline fired, and to the context error when the caller cancelled.
func transportError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isNetTimeout(err):
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (f *HTTPFetcher) recordSuccess(latency time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.successCount++
	f.requestCount++
	f.totalLatency += latency
	f.health.Requests = f.requestCount
	f.health.LastSuccessAt = time.Now()
	f.health.Available = true

	if f.requestCount > 0 {
		f.health.ErrorRate = float64(f.failureCount) / float64(f.requestCount)
	}
	if f.successCount > 0 {
		f.health.Latency = f.totalLatency / time.Duration(f.successCount)
	}
}

func (f *HTTPFetcher) recordFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failureCount++
	f.requestCount++
	f.health.Requests = f.requestCount
	f.health.LastFailureAt = time.Now()

	if f.requestCount > 0 {
		f.health.ErrorRate = float64(f.failureCount) / float64(f.requestCount)
	}

	if f.health.ErrorRate > 0.5 {
		f.health.Available = false
	}
}
