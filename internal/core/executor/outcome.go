package executor

import (
	"context"
	"errors"

	"github.com/vietddude/fetcher/internal/infra/fetch"
)

// OutcomeKind describes how an attempt ended.
type OutcomeKind int

const (
	OutcomeSuccess   OutcomeKind = iota // 2xx within the timeout
	OutcomeRetryable                    // non-2xx within the timeout
	OutcomeTimeout                      // attempt deadline elapsed
	OutcomeFatal                        // no response for another reason
	OutcomeCanceled                     // caller context done
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFatal:
		return "fatal"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is the classification of a single attempt.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Payload    []byte // set only for OutcomeSuccess
	Err        error  // nil only for OutcomeSuccess
}

// Classify maps the result of one fetch to an Outcome. ctx is the caller's
// context and attemptCtx the per-attempt context derived from it.
//
// Caller cancellation wins over everything else, then the attempt deadline:
// a response that arrives after the deadline is a timeout, not a success.
func Classify(ctx, attemptCtx context.Context, resp fetch.Response, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{Kind: OutcomeCanceled, Err: ctxErr}
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, fetch.ErrTimeout) {
		if err == nil {
			err = attemptCtx.Err()
		}
		return Outcome{Kind: OutcomeTimeout, Err: err}
	}

	if err != nil {
		return Outcome{Kind: OutcomeFatal, Err: err}
	}

	if !resp.OK() {
		return Outcome{
			Kind:       OutcomeRetryable,
			StatusCode: resp.StatusCode,
			Err:        &RetryableRemoteError{StatusCode: resp.StatusCode, Body: resp.Body},
		}
	}

	return Outcome{Kind: OutcomeSuccess, StatusCode: resp.StatusCode, Payload: resp.Body}
}
