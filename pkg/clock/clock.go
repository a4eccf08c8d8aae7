// Package clock provides a small, injectable time capability so that every
// delay in the crawl core is cancellable and tests can simulate time
// without waiting in real time.
package clock

import (
	"context"
	"time"
)

// Clock abstracts the time operations the crawl core performs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep waits for the given duration or until the context is
	// cancelled, in which case it returns the context's error.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the production Clock backed by the runtime timer.
type Real struct{}

// New returns the production clock.
func New() Clock {
	return Real{}
}

// Now returns the wall-clock time.
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is cancelled.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
