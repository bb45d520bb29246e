package orchestrator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffConfig bounds the reaction to rate limiting. Each rate-limit
// response grows the delay exponentially until Max, where it stays.
// Budget caps how many delayed retries one persona/mode pair gets.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	Budget  int
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = 2 * time.Second
	}
	if c.Max <= 0 {
		c.Max = 30 * time.Second
	}
	if c.Budget <= 0 {
		c.Budget = 2
	}
	return c
}

// newBackOff builds the shared per-call delay source. Randomization is
// disabled so successive delays grow monotonically to the cap, which
// keeps the walk auditable from logs alone.
func (c BackoffConfig) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.Initial
	bo.MaxInterval = c.Max
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	return bo
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
