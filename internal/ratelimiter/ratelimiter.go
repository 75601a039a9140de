package ratelimiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter throttles accepted connections using a token bucket.
//
// This implementation wraps golang.org/x/time/rate to provide:
//   - Token bucket rate limiting (allows bursts while enforcing sustained rate)
//   - Context-aware waiting (respects cancellation)
//   - Runtime limit changes (configuration hot reload)
//
// The HTTP accept loop calls Allow first and falls back to Wait, so a
// client flood is slowed down rather than refused.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
}

// New creates a RateLimiter allowing requestsPerSecond sustained with
// bursts of up to burst.
//
// Special cases:
//   - requestsPerSecond <= 0: no limiting (every call is allowed)
//   - burst < 1 with a positive rate: burst of 1
//
// Example:
//
//	// Allow 500 conn/s sustained, 1000 at once
//	limiter := New(500, 1000)
func New(requestsPerSecond float64, burst int) *RateLimiter {
	r := &RateLimiter{}
	r.SetLimit(requestsPerSecond, burst)
	return r
}

func toLimit(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

func toBurst(requestsPerSecond float64, burst int) int {
	if requestsPerSecond > 0 && burst < 1 {
		return 1
	}
	return burst
}

// Enabled reports whether a finite limit is in force.
func (r *RateLimiter) Enabled() bool {
	return r.limiter.Load().Limit() != rate.Inf
}

// Allow reports whether one event may happen now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Load().Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns:
//   - nil if a token was acquired
//   - ctx.Err() (or a rate error if the wait can never succeed) otherwise
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Load().Wait(ctx)
}

// SetLimit changes the sustained rate and burst at runtime.
// requestsPerSecond <= 0 disables limiting. The bucket starts full again;
// callers already blocked in Wait finish against the previous bucket.
func (r *RateLimiter) SetLimit(requestsPerSecond float64, burst int) {
	r.limiter.Store(rate.NewLimiter(toLimit(requestsPerSecond), toBurst(requestsPerSecond, burst)))
}

// Tokens returns the number of tokens currently in the bucket.
// Useful for monitoring and tests only; the value changes continuously.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Load().Tokens()
}
