// Package client implements the calling side of the remote runner protocol:
// an asynchronous dispatcher over the session/transport managers, and a
// synchronous bridge that lets plain blocking code invoke it.
//
//	caller → Call (blocks) → dispatch worker → session → pooled transport → runner
//
// Concurrency comes from the transport multiplexing pooled connections, not
// from a thread per call: many callers may block on Call at once, each only
// on its own result channel.
package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"runner-rpc/loadbalance"
	"runner-rpc/middleware"
	"runner-rpc/registry"
	"runner-rpc/runner"
	"runner-rpc/session"
	"runner-rpc/transport"
)

// Identity names the calling component on the wire. The remote side uses it
// for observability and multi-tenant routing, never for protocol
// correctness.
type Identity struct {
	Name                string
	Version             string
	DeploymentName      string
	DeploymentNamespace string
}

// Client dispatches calls to one remote runner.
type Client struct {
	runner   *runner.Runner
	conns    *transport.Manager
	sessions *session.Manager
	identity Identity
	logger   *zap.Logger
	call     middleware.CallFunc

	tasks     chan *task
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

type task struct {
	ctx    context.Context
	method string
	args   []interface{}
	kwargs map[string]interface{}
	result chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// Option configures a Client.
type Option func(*options)

type options struct {
	identity    Identity
	logger      *zap.Logger
	timeout     time.Duration
	balancer    loadbalance.Balancer
	middlewares []middleware.Middleware
}

// WithIdentity sets the calling component's identifying headers.
func WithIdentity(id Identity) Option {
	return func(o *options) { o.identity = id }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout overrides the default total-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithBalancer sets the replica selection strategy.
func WithBalancer(b loadbalance.Balancer) Option {
	return func(o *options) { o.balancer = b }
}

// WithMiddleware attaches call-policy middleware around dispatch. This is
// the only place retry, throttling, or per-call timeouts enter the call
// path; the core dispatch performs none of them.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// New creates a client for the given runner, resolving its bind URI through
// the injected runner map. The dispatch worker starts immediately; the
// transport connects lazily on the first call.
func New(r *runner.Runner, runners registry.RunnerMap, opts ...Option) *Client {
	o := &options{
		logger:  zap.NewNop(),
		timeout: session.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	managerOpts := []transport.ManagerOption{transport.WithLogger(o.logger)}
	if o.balancer != nil {
		managerOpts = append(managerOpts, transport.WithBalancer(o.balancer))
	}
	conns := transport.NewManager(r.Name, runners, managerOpts...)

	c := &Client{
		runner:   r,
		conns:    conns,
		sessions: session.NewManager(conns, session.WithDefaultTimeout(o.timeout)),
		identity: o.identity,
		logger:   o.logger,
		tasks:    make(chan *task),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.call = middleware.Chain(o.middlewares...)(c.dispatch)

	go c.run()
	return c
}

// run is the dedicated dispatch worker: it accepts submitted tasks and
// launches each as its own dispatch, so one slow call never blocks the
// intake of others.
func (c *Client) run() {
	defer close(c.done)
	var inflight sync.WaitGroup
	for {
		select {
		case t := <-c.tasks:
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				value, err := c.call(t.ctx, t.method, t.args, t.kwargs)
				t.result <- taskResult{value: value, err: err}
			}()
		case <-c.closed:
			inflight.Wait()
			return
		}
	}
}

// Call invokes a runner method synchronously with positional arguments,
// blocking the calling goroutine until the remote responds. Errors from the
// dispatch path propagate unchanged; there is no implicit retry.
func (c *Client) Call(method string, args ...interface{}) (interface{}, error) {
	return c.CallContext(context.Background(), method, args, nil)
}

// CallContext invokes a runner method with explicit context, positional
// arguments, and keyword arguments.
func (c *Client) CallContext(ctx context.Context, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	t := &task{
		ctx:    ctx,
		method: method,
		args:   args,
		kwargs: kwargs,
		result: make(chan taskResult, 1),
	}

	select {
	case c.tasks <- t:
	case <-c.closed:
		return nil, ErrClientClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// The dispatch path honors ctx at every suspension point, so waiting on
	// the result alone cannot hang past cancellation.
	res := <-t.result
	return res.value, res.err
}

// Close stops accepting calls, waits for in-flight dispatches, and tears
// down the session and transport managers.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		<-c.done

		c.sessions.Invalidate()
		err = multierr.Append(err, c.conns.Close())
		c.logger.Debug("runner client closed", zap.String("runner", c.runner.Name))
	})
	return err
}

// Runner returns the runner reference this client serves.
func (c *Client) Runner() *runner.Runner { return c.runner }
