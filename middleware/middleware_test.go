package middleware

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func echoCall(_ context.Context, method string, _ []interface{}, _ map[string]interface{}) (interface{}, error) {
	return method, nil
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CallFunc) CallFunc {
			return func(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
				order = append(order, name)
				return next(ctx, method, args, kwargs)
			}
		}
	}

	call := Chain(tag("outer"), tag("inner"))(echoCall)
	result, err := call(context.Background(), "predict", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "predict", result)
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestLogging(t *testing.T) {
	call := Logging(zap.NewNop())(echoCall)
	result, err := call(context.Background(), "predict", []interface{}{1}, nil)
	require.NoError(t, err)
	require.Equal(t, "predict", result)
}

func TestRateLimit(t *testing.T) {
	call := RateLimit(1, 2)(echoCall)

	// burst=2: two calls pass immediately
	for i := 0; i < 2; i++ {
		_, err := call(context.Background(), "predict", nil, nil)
		require.NoError(t, err)
	}

	// third call would need to wait ~1s; a short context deadline trips first
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := call(ctx, "predict", nil, nil)
	require.Error(t, err)
}

func TestTimeout(t *testing.T) {
	slow := func(ctx context.Context, _ string, _ []interface{}, _ map[string]interface{}) (interface{}, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := Timeout(50 * time.Millisecond)(slow)
	_, err := call(context.Background(), "predict", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	call = Timeout(time.Second)(slow)
	result, err := call(context.Background(), "predict", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "done", result)
}

func TestRetryRetriesTransientOnly(t *testing.T) {
	attempts := 0
	flaky := func(_ context.Context, _ string, _ []interface{}, _ map[string]interface{}) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, syscall.ECONNREFUSED
		}
		return "ok", nil
	}

	result, err := Retry(3, time.Millisecond)(flaky)(context.Background(), "predict", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, attempts)
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	attempts := 0
	perm := errors.New("remote exploded")
	failing := func(_ context.Context, _ string, _ []interface{}, _ map[string]interface{}) (interface{}, error) {
		attempts++
		return nil, perm
	}

	_, err := Retry(3, time.Millisecond)(failing)(context.Background(), "predict", nil, nil)
	require.ErrorIs(t, err, perm)
	require.Equal(t, 1, attempts, "non-transient errors must not be retried")
}
