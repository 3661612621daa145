package middleware

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// Retry re-issues calls that failed with a transient transport condition:
// timeouts and refused connections. Remote-side failures (non-200 responses,
// protocol violations, validation errors) are never retried — they would
// fail identically again.
//
// Backoff doubles from baseDelay on each attempt.
func Retry(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			result, err := next(ctx, method, args, kwargs)
			for attempt := 0; attempt < maxRetries && err != nil && retryable(err); attempt++ {
				select {
				case <-time.After(baseDelay * time.Duration(1<<attempt)):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				result, err = next(ctx, method, args, kwargs)
			}
			return result, err
		}
	}
}

func retryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, context.DeadlineExceeded)
}
