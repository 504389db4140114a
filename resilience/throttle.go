package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle caps the rate of deletion attempts independently of the
// backoff strategy. It exists so that a misconfigured zero-interval
// backoff cannot busy-spin the retry loop.
type Throttle interface {
	// Allow reports whether an attempt may proceed now.
	Allow() bool

	// Wait blocks until an attempt may proceed or the context is
	// canceled.
	Wait(ctx context.Context) error
}

// ThrottleConfig configures the attempt throttle.
type ThrottleConfig struct {
	// AttemptsPerSecond is the sustained attempt rate.
	AttemptsPerSecond float64

	// Burst is the number of attempts allowed to proceed immediately.
	Burst int
}

// DefaultThrottleConfig returns the throttle used by hard guards.
// The first attempt is never delayed.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		AttemptsPerSecond: 20,
		Burst:             1,
	}
}

// throttle implements Throttle on a token bucket.
type throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a new attempt throttle.
func NewThrottle(config ThrottleConfig) Throttle {
	return &throttle{
		limiter: rate.NewLimiter(rate.Limit(config.AttemptsPerSecond), config.Burst),
	}
}

// Allow implements Throttle.Allow.
func (t *throttle) Allow() bool {
	return t.limiter.Allow()
}

// Wait implements Throttle.Wait.
func (t *throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Unlimited returns a throttle that never delays. Used by soft guards,
// which only ever make one attempt.
func Unlimited() Throttle {
	return unlimited{}
}

type unlimited struct{}

func (unlimited) Allow() bool                    { return true }
func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }
