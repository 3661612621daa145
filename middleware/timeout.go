package middleware

import (
	"context"
	"time"
)

// Timeout bounds each call with a per-call deadline. The dispatch path
// honors context cancellation at every suspension point, so no extra
// goroutine is needed here.
func Timeout(d time.Duration) Middleware {
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, method, args, kwargs)
		}
	}
}
