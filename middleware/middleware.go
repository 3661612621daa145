// Package middleware provides opt-in call policy around the runner client's
// dispatch path. The core dispatch never retries, throttles, or times out on
// its own; any such policy is attached explicitly by the caller through a
// middleware chain.
package middleware

import "context"

// CallFunc is the dispatch signature middlewares wrap.
type CallFunc func(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// Middleware wraps a CallFunc with additional behavior.
type Middleware func(next CallFunc) CallFunc

// Chain composes middlewares into one. Chain(A, B, C)(call) runs as
// A(B(C(call))): the first middleware sees the call first.
func Chain(middlewares ...Middleware) Middleware {
	return func(next CallFunc) CallFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
