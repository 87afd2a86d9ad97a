package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected method GET, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "fetcher-test" {
			t.Errorf("expected user agent fetcher-test, got %q", ua)
		}
		_, _ = w.Write([]byte(`[{"item_id":1}]`))
	}))
	defer server.Close()

	f := NewHTTPFetcher("test", WithUserAgent("fetcher-test"))
	defer f.Close()

	resp, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK() {
		t.Errorf("expected OK response, got status %d", resp.StatusCode)
	}
	if string(resp.Body) != `[{"item_id":1}]` {
		t.Errorf("unexpected body %q", resp.Body)
	}

	health := f.Health()
	if !health.Available || health.Requests != 1 || health.ErrorRate != 0 {
		t.Errorf("unexpected health after success: %+v", health)
	}
}

func TestHTTPFetcher_NonSuccessStatusIsAResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewHTTPFetcher("test")
	resp, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("non-2xx must not be an error, got %v", err)
	}
	if resp.OK() {
		t.Error("502 must not be OK")
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "upstream exploded") {
		t.Errorf("expected error body, got %q", resp.Body)
	}
	if f.Health().ErrorRate != 1 {
		t.Errorf("expected error rate 1, got %v", f.Health().ErrorRate)
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewHTTPFetcher("test")
	start := time.Now()
	_, err := f.Fetch(context.Background(), server.URL, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestHTTPFetcher_TimeoutWhileReadingBody(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewHTTPFetcher("test")
	resp, err := f.Fetch(context.Background(), server.URL, 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if resp.Body != nil {
		t.Errorf("partial body leaked: %q", resp.Body)
	}
}

func TestHTTPFetcher_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	f := NewHTTPFetcher("test")
	_, err := f.Fetch(ctx, server.URL, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("caller cancellation must not look like a timeout")
	}
}

func TestHTTPFetcher_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	f := NewHTTPFetcher("test", WithMaxBodyBytes(16))
	_, err := f.Fetch(context.Background(), server.URL, 5*time.Second)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	f := NewHTTPFetcher("test")
	_, err := f.Fetch(context.Background(), url, 5*time.Second)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("connection refused must not be a timeout: %v", err)
	}
}

func TestResponse_OK(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		if got := (Response{StatusCode: tt.status}).OK(); got != tt.want {
			t.Errorf("Response{%d}.OK() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestHTTPFetcher_RedirectIsNotFollowed(t *testing.T) {
	var moved, target atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		moved.Add(1)
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		target.Add(1)
		_, _ = w.Write([]byte("other resource"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewHTTPFetcher("test")
	defer f.Close()

	resp, err := f.Fetch(context.Background(), server.URL+"/moved", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}
	if resp.OK() {
		t.Error("302 must not be OK")
	}
	if got := resp.Header.Get("Location"); got != "/ok" {
		t.Errorf("expected Location /ok, got %q", got)
	}
	if moved.Load() != 1 || target.Load() != 0 {
		t.Errorf("expected one request to /moved and none to /ok, got %d and %d", moved.Load(), target.Load())
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return fn(r) }

func TestHTTPFetcher_WithTransport(t *testing.T) {
	var calls atomic.Int32
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("stubbed")),
			Request:    r,
		}, nil
	})

	f := NewHTTPFetcher("stub", WithTransport(rt))
	if f.Name() != "stub" {
		t.Errorf("expected name stub, got %q", f.Name())
	}

	resp, err := f.Fetch(context.Background(), "http://remote.invalid/items", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "stubbed" || calls.Load() != 1 {
		t.Errorf("transport not used: body %q, calls %d", resp.Body, calls.Load())
	}
}
