package erp

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

var errBucketExhausted = errors.New("erp: token bucket cannot grant a token")

// TokenBucket throttles outbound ERP calls.
// Capacity is the per-minute budget; tokens refill continuously at capacity/60s
// and the bucket starts full.
type TokenBucket struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewTokenBucket creates a bucket allowing requestsPerMinute calls per minute
func NewTokenBucket(requestsPerMinute int, clock Clock) *TokenBucket {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if clock == nil {
		clock = RealClock()
	}
	perSecond := rate.Limit(float64(requestsPerMinute) / 60.0)
	return &TokenBucket{
		limiter: rate.NewLimiter(perSecond, requestsPerMinute),
		clock:   clock,
	}
}

// Acquire blocks until one token is available and debits it.
// The wait is computed up front and slept once on the clock.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := b.clock.Now()
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errBucketExhausted
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := b.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(b.clock.Now())
		return err
	}
	return nil
}
