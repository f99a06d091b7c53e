package analyses

import (
	"context"
	"math/rand"
	"time"

	"feedback-translator/internal/shared/metrics"
	"feedback-translator/internal/shared/telemetry"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1000 * time.Millisecond
	maxJitter         = 1000 * time.Millisecond
)

// retryWithBackoff invokes op up to maxRetries+1 times. The delay before retry
// n (1-indexed) is baseDelay * 2^(n-1) plus up to one second of jitter, so
// synchronized callers don't hammer the upstream in lockstep. Any error is
// retried; exhaustion yields ModelUnavailableError wrapping the last error.
func retryWithBackoff[T any](ctx context.Context, op func() (T, error), maxRetries int, baseDelay time.Duration, sleep func(context.Context, time.Duration) error) (T, error) {
	var zero T
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		delay := baseDelay*(1<<attempt) + time.Duration(rand.Int63n(int64(maxJitter)))
		metrics.IncModelRetries()
		telemetry.Info("model.retry", map[string]any{
			"attempt":     attempt + 1,
			"max_retries": maxRetries,
			"delay_ms":    delay.Milliseconds(),
			"error":       err.Error(),
		})
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ModelUnavailableError{Attempts: maxRetries + 1, Err: lastErr}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
