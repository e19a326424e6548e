package resilience

import (
	"context"

	"github.com/vigia/sentinela/core"
)

// Guarded composes a circuit breaker and a retry policy around a single
// call: breaker-gated(retry-wrapped(operation)). It is the unit placed
// at each position of a FallbackChain. When the breaker denies the
// call, Guarded returns core.ErrCircuitOpen without invoking op at all.
func Guarded[T any](cb *CircuitBreaker, rp *RetryPolicy, op func(ctx context.Context) (T, error)) Op[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		if !cb.Allow() {
			return zero, core.ErrCircuitOpen
		}

		var result T
		err := rp.Do(ctx, func(ctx context.Context) error {
			r, callErr := op(ctx)
			if callErr != nil {
				return callErr
			}
			result = r
			return nil
		})

		if err != nil {
			cb.RecordFailure()
			return zero, err
		}
		cb.RecordSuccess()
		return result, nil
	}
}
