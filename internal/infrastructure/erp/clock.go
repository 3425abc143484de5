package erp

import (
	"context"
	"time"
)

// Clock abstracts time so rate limiting and backoff can be tested without sleeping
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
