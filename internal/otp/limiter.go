package otp

import "context"

// Limiter enforces the per-account daily send budget on top of the attempt
// counters in Cache. The check-then-increment pair is deliberately not
// atomic: an off-by-one under heavy concurrency is acceptable for a soft
// abuse-prevention limit.
type Limiter struct {
	cache *Cache
	max   int
}

// NewLimiter creates a Limiter. A non-positive max falls back to
// MaxSendsPerDay.
func NewLimiter(cache *Cache, max int) *Limiter {
	if max <= 0 {
		max = MaxSendsPerDay
	}
	return &Limiter{cache: cache, max: max}
}

// Check fails with ErrRateLimited once the day's budget is exhausted.
func (l *Limiter) Check(ctx context.Context, key AttemptKey) error {
	count, err := l.cache.Attempts(ctx, key)
	if err != nil {
		return err
	}
	if count >= l.max {
		return ErrRateLimited
	}
	return nil
}

// Record registers a send and returns how many attempts remain today.
// The counter persists even when the subsequent email delivery fails, so the
// limit also shields the mailer from abuse.
func (l *Limiter) Record(ctx context.Context, key AttemptKey) (remaining int, err error) {
	count, err := l.cache.IncrementAttempts(ctx, key)
	if err != nil {
		return 0, err
	}
	remaining = l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the day's counter after a successful verification.
func (l *Limiter) Reset(ctx context.Context, key AttemptKey) error {
	return l.cache.ResetAttempts(ctx, key)
}

// Max returns the configured daily budget.
func (l *Limiter) Max() int { return l.max }
