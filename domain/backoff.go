package domain

import "time"

// Backoff computes retry delays. Delay is a pure function of the attempt number so the policy
// can be tested without sleeping.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the wait after the given failed attempt (1-based): Base, 2*Base, 4*Base, ...
// capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.Max > 0 && delay >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

func (b Backoff) attempts() int {
	return max(b.MaxAttempts, 1)
}
