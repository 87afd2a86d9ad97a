// Package executor runs a fetch against an unreliable endpoint until it
// succeeds, the retry budget runs out, or an attempt times out.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fetcher/internal/infra/fetch"
	"github.com/vietddude/fetcher/internal/metrics"
)

// AttemptRecord describes one finished attempt.
type AttemptRecord struct {
	RunID      string
	Attempt    int
	Outcome    OutcomeKind
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Executor drives the retry loop. It holds no per-call state, so one value
// may serve any number of concurrent Run calls.
type Executor struct {
	fetcher   fetch.Fetcher
	log       *slog.Logger
	onAttempt func(AttemptRecord)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithAttemptHook registers a function called synchronously after every attempt.
func WithAttemptHook(fn func(AttemptRecord)) Option {
	return func(e *Executor) {
		e.onAttempt = fn
	}
}

// New creates an Executor over the given fetch primitive.
func New(f fetch.Fetcher, opts ...Option) *Executor {
	e := &Executor{
		fetcher: f,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run fetches locator and hands the payload of the first 2xx response to
// observer. maxRetries is the number of additional attempts allowed after the
// first, consumed only by non-2xx answers; timeout bounds each attempt.
//
// Run returns nil after the observer has been called, *ExhaustedError when
// maxRetries+1 attempts all got non-2xx answers, *TimeoutError as soon as an
// attempt times out, *TransportError when no response could be obtained for
// another reason, and a wrapped context error when ctx is done.
func (e *Executor) Run(
	ctx context.Context,
	locator string,
	observer Observer,
	maxRetries int,
	timeout time.Duration,
) error {
	switch {
	case locator == "":
		return ErrInvalidLocator
	case observer == nil:
		return ErrNilObserver
	case maxRetries < 0:
		return ErrInvalidRetries
	case timeout <= 0:
		return ErrInvalidTimeout
	}

	runID := uuid.NewString()
	log := e.log.With("run_id", runID, "url", locator)

	remaining := maxRetries
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			metrics.RunsTotal.WithLabelValues(OutcomeCanceled.String()).Inc()
			return fmt.Errorf("run canceled before attempt %d: %w", attempt, err)
		}

		start := time.Now()
		out := e.attempt(ctx, locator, timeout)
		elapsed := time.Since(start)

		metrics.AttemptsTotal.WithLabelValues(out.Kind.String()).Inc()
		metrics.AttemptDuration.WithLabelValues(out.Kind.String()).Observe(elapsed.Seconds())
		if e.onAttempt != nil {
			e.onAttempt(AttemptRecord{
				RunID:      runID,
				Attempt:    attempt,
				Outcome:    out.Kind,
				StatusCode: out.StatusCode,
				Duration:   elapsed,
				Err:        out.Err,
			})
		}

		switch out.Kind {
		case OutcomeSuccess:
			log.Debug("Fetch succeeded", "attempt", attempt, "bytes", len(out.Payload), "duration", elapsed)
			observer.Observe(ctx, out.Payload)
			metrics.RunsTotal.WithLabelValues(OutcomeSuccess.String()).Inc()
			return nil

		case OutcomeRetryable:
			if remaining == 0 {
				log.Warn("Retry budget exhausted", "attempts", attempt, "status", out.StatusCode)
				metrics.RunsTotal.WithLabelValues("exhausted").Inc()
				return &ExhaustedError{Attempts: attempt, Last: out.Err}
			}
			remaining--
			log.Info("Remote returned error status, retrying",
				"attempt", attempt,
				"status", out.StatusCode,
				"retries_left", remaining,
			)

		case OutcomeTimeout:
			log.Warn("Attempt timed out, giving up", "attempt", attempt, "timeout", timeout)
			metrics.RunsTotal.WithLabelValues(OutcomeTimeout.String()).Inc()
			return &TimeoutError{Attempt: attempt, Timeout: timeout, Err: out.Err}

		case OutcomeCanceled:
			metrics.RunsTotal.WithLabelValues(OutcomeCanceled.String()).Inc()
			return fmt.Errorf("run canceled during attempt %d: %w", attempt, out.Err)

		default:
			log.Warn("Attempt failed without a response", "attempt", attempt, "error", out.Err)
			metrics.RunsTotal.WithLabelValues(OutcomeFatal.String()).Inc()
			return &TransportError{Attempt: attempt, Err: out.Err}
		}
	}
}

func (e *Executor) attempt(ctx context.Context, locator string, timeout time.Duration) Outcome {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := e.fetcher.Fetch(attemptCtx, locator, timeout)
	return Classify(ctx, attemptCtx, resp, err)
}
