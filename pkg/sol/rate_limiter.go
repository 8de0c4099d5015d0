package sol

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter bounds the fetcher's RPC request rate.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with an equal
// burst.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Wait blocks until the limiter admits the request.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed without waiting.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}
