package async

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/studypal/pkg/utils/logging"
)

// Dispatch executes a handler function asynchronously in a new goroutine
// It creates a background context and handles errors and panics
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	// Create a new background context but preserve logger
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger := logging.From(bgCtx)
				logger.Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logger := logging.From(bgCtx)
			logger.Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}

// RaceDeadline runs fn in its own goroutine and waits for it or for timeout,
// whichever comes first. On timeout the result of fn is discarded and fn keeps
// running detached. A non-positive timeout waits for fn without a deadline.
func RaceDeadline[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	// Buffered so the detached goroutine can always finish
	ch := make(chan result, 1)
	bgCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: goerr.New("panic in raced call", goerr.V("panic", r))}
			}
		}()
		v, err := fn(bgCtx)
		ch <- result{value: v, err: err}
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	var zero T
	select {
	case r := <-ch:
		return r.value, r.err
	case <-timeoutCh:
		return zero, goerr.Wrap(ErrDeadlineExceeded, "call did not finish in time", goerr.V("timeout", timeout.String()))
	case <-ctx.Done():
		return zero, goerr.Wrap(ctx.Err(), "context cancelled while waiting for call")
	}
}

// ErrDeadlineExceeded is returned by RaceDeadline when the deadline passes first
var ErrDeadlineExceeded = goerr.New("deadline exceeded")
