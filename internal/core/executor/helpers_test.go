package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/fetcher/internal/infra/fetch"
)

// step scripts one attempt of a scriptedFetcher.
type step struct {
	status  int
	body    string
	timeout bool  // report fetch.ErrTimeout immediately
	hang    bool  // block until the attempt context is done
	err     error // transport error
}

func succeed(body string) step { return step{status: 200, body: body} }
func fail(status int) step { return step{status: status, body: fmt.Sprintf("status %d", status)} }
func timedOut() step { return step{timeout: true} }
func hang() step { return step{hang: true} }
func transport(err error) step { return step{err: err} }

// scriptedFetcher replays steps in order. Calls past the script repeat the last step.
type scriptedFetcher struct {
	mu       sync.Mutex
	steps    []step
	calls    int
	timeouts []time.Duration
}

func newScripted(steps ...step) *scriptedFetcher {
	return &scriptedFetcher{steps: steps}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, locator string, timeout time.Duration) (fetch.Response, error) {
	f.mu.Lock()
	idx := min(f.calls, len(f.steps)-1)
	f.calls++
	f.timeouts = append(f.timeouts, timeout)
	s := f.steps[idx]
	f.mu.Unlock()

	switch {
	case s.hang:
		<-ctx.Done()
		return fetch.Response{}, fmt.Errorf("fetch: %w", ctx.Err())
	case s.timeout:
		return fetch.Response{}, fmt.Errorf("fetch: %w", fetch.ErrTimeout)
	case s.err != nil:
		return fetch.Response{}, s.err
	}
	return fetch.Response{StatusCode: s.status, Body: []byte(s.body)}, nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingObserver captures every payload it is given.
type recordingObserver struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (o *recordingObserver) Observe(ctx context.Context, payload []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payloads = append(o.payloads, append([]byte(nil), payload...))
}

func (o *recordingObserver) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.payloads)
}

func (o *recordingObserver) Last() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.payloads) == 0 {
		return nil
	}
	return o.payloads[len(o.payloads)-1]
}

// kindRecorder collects outcome kinds through WithAttemptHook.
type kindRecorder struct {
	mu    sync.Mutex
	kinds []OutcomeKind
}

func (r *kindRecorder) hook(rec AttemptRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, rec.Outcome)
}

func (r *kindRecorder) Kinds() []OutcomeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OutcomeKind(nil), r.kinds...)
}
