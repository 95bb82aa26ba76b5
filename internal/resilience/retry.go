package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// FixedRetry runs an operation up to 1+Retries times with a constant delay
// between attempts. Cancellation of the caller's context aborts immediately.
type FixedRetry[T any] struct {
	policy retrypolicy.RetryPolicy[T]
}

// NewFixedRetry builds a retry policy. onRetry, when non-nil, is invoked
// before each extra attempt with the attempt number that just failed.
func NewFixedRetry[T any](retries int, delay time.Duration, onRetry func(attempt int, err error)) *FixedRetry[T] {
	builder := retrypolicy.NewBuilder[T]().
		WithMaxRetries(retries).
		WithDelay(delay).
		AbortIf(func(_ T, err error) bool {
			return errors.Is(err, context.Canceled)
		}).
		ReturnLastFailure()

	if onRetry != nil {
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[T]) {
			onRetry(e.Attempts(), e.LastError())
		})
	}
	return &FixedRetry[T]{policy: builder.Build()}
}

// Do runs fn under the policy and returns the first success or the last failure.
func (r *FixedRetry[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return failsafe.With(r.policy).WithContext(ctx).Get(func() (T, error) {
		return fn(ctx)
	})
}
