package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/pricewatch/internal/connector/domain"
)

// Outcome classifies how a single connector call ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeTimeout Outcome = "timeout"
	OutcomePanic   Outcome = "panic"
)

type panicError struct {
	value any
}

func (e panicError) Error() string { return fmt.Sprintf("connector panic: %v", e.value) }

// Call runs fn with a deadline of timeout. It returns once fn finishes or the
// deadline passes, whichever comes first; a connector that ignores its context
// is abandoned and its late result discarded. Panics are recovered and
// reported as failures. Every non-nil error wraps domain.ErrSourceUnavailable.
func Call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, Outcome, error) {
	var zero T
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: panicError{value: r}}
			}
		}()
		v, err := fn(callCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.val, OutcomeOK, nil
		}
		outcome := OutcomeFailed
		var pErr panicError
		switch {
		case errors.As(r.err, &pErr):
			outcome = OutcomePanic
		case errors.Is(r.err, context.DeadlineExceeded):
			outcome = OutcomeTimeout
		}
		return zero, outcome, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, r.err)
	case <-callCtx.Done():
		return zero, OutcomeTimeout, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, callCtx.Err())
	}
}

// DefaultTimeout bounds a connector call when no timeout is configured.
const DefaultTimeout = 10 * time.Second
