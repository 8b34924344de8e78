package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// QuotaExceededError is returned by Acquire once a source has used its
// configured call ceiling.
type QuotaExceededError struct {
	Source  string
	Ceiling int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: call ceiling reached (%d calls)", e.Source, e.Ceiling)
}

// RateLimiter spaces calls to one upstream source and optionally caps how
// many calls a run may make. It is safe for concurrent use.
type RateLimiter struct {
	name     string
	maxCalls int

	mu      sync.Mutex
	limiter *rate.Limiter
	calls   int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter enforcing minInterval between calls.
// maxCalls <= 0 means no ceiling.
func NewRateLimiter(name string, minInterval time.Duration, maxCalls int) *RateLimiter {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &RateLimiter{
		name:     name,
		maxCalls: maxCalls,
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
		sleep:    SleepContext,
	}
}

// WithClock replaces the time source and the wait function. Tests use it to
// observe the exact delays without sleeping.
func (rl *RateLimiter) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
	rl.sleep = sleep
	return rl
}

// Name returns the upstream source name.
func (rl *RateLimiter) Name() string { return rl.name }

// Acquire must be called before each upstream call. It fails with a
// *QuotaExceededError when the ceiling is reached, otherwise it waits out
// the remainder of the minimum interval and counts the call.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	rl.mu.Lock()
	if rl.maxCalls > 0 && rl.calls >= rl.maxCalls {
		rl.mu.Unlock()
		return &QuotaExceededError{Source: rl.name, Ceiling: rl.maxCalls}
	}

	now := rl.now()
	res := rl.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	rl.calls++
	sleep := rl.sleep
	rl.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	if err := sleep(ctx, delay); err != nil {
		rl.mu.Lock()
		res.CancelAt(rl.now())
		rl.calls--
		rl.mu.Unlock()
		return err
	}
	return nil
}

// Calls returns how many calls have been let through.
func (rl *RateLimiter) Calls() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.calls
}
