package utils

import (
	"context"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger

	// IsTimeout classifies errors that get the "timed out" log line.
	IsTimeout func(error) bool
	// Sleep waits between attempts. Nil means a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait before the retry that follows the given attempt:
// BaseDelay * 2^attempt, so 1s then 2s with the default 500ms base.
func (r *RetryConfig) Delay(attempt int) time.Duration {
	return r.BaseDelay << uint(attempt)
}

// Do executes fn with exponential back-off retry logic. When every attempt
// fails the last error is returned as is.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := r.Delay(attempt)
		if r.Logger != nil {
			if r.IsTimeout != nil && r.IsTimeout(lastErr) {
				r.Logger.Warn("[retry] %s: request timed out (attempt %d/%d), retrying in %v",
					operationName, attempt, attempts, delay)
			} else {
				r.Logger.Debug("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, delay)
			}
		}
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
