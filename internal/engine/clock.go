package engine

import (
	"context"
	"time"
)

// Clock abstracts time for the scheduler loop so tests can simulate polling
// intervals without real delays.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is cancelled, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock implements Clock with the actual wall clock.
type realClock struct{}

// RealClock returns a Clock backed by the wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
