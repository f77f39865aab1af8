package utils

import (
	"context"
	"time"
)

// BackoffPolicy decides how long to wait before the given (1-based) attempt.
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedBackoff waits the same delay before every attempt.
type FixedBackoff struct {
	Delay time.Duration
}

func (b FixedBackoff) NextDelay(int) time.Duration {
	return b.Delay
}

// ExponentialBackoff doubles Initial per attempt, capped at Max.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (b ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// NoBackoff never waits. Tests inject it so retry loops run instantly.
var NoBackoff BackoffPolicy = FixedBackoff{}

// SleepContext waits for d or until ctx is done, whichever comes first.
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
