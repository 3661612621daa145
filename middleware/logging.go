package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logging records every call with its method, duration, and outcome.
func Logging(log *zap.Logger) Middleware {
	return func(next CallFunc) CallFunc {
		return func(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, method, args, kwargs)
			fields := []zap.Field{
				zap.String("method", method),
				zap.Int("args", len(args)+len(kwargs)),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				log.Warn("runner call failed", append(fields, zap.Error(err))...)
			} else {
				log.Debug("runner call completed", fields...)
			}
			return result, err
		}
	}
}
