package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimit throttles calls through a token bucket. Wait blocks until a
// token is available or the context expires, so backpressure lands on the
// calling thread, not the shared transport.
func RateLimit(callsPerSecond float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(callsPerSecond), burst)
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait for %s: %w", method, err)
			}
			return next(ctx, method, args, kwargs)
		}
	}
}
