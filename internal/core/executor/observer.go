package executor

import "context"

// Observer receives the payload of a successful run. It is called at most once
// per Run and never on failure. Errors inside Observe are the observer's own
// concern; Run does not inspect them.
type Observer interface {
	Observe(ctx context.Context, payload []byte)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, payload []byte)

func (f ObserverFunc) Observe(ctx context.Context, payload []byte) {
	f(ctx, payload)
}
