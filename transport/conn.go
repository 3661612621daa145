// Package transport owns the pooled HTTP transport bound to one runner.
//
// The Manager is the single owner of the cached connection handle: callers
// borrow it through GetConnection and never close or mutate it themselves.
// Rebuild conditions are enumerated as an explicit state machine:
//
//	UNINITIALIZED → CONNECTING → READY → CLOSED → CONNECTING (rebuild)
//
// CLOSED is not terminal — the next GetConnection transparently reconnects,
// resolving the runner's bind URI afresh to tolerate late binding.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// ErrUnsupportedScheme marks a bind URI whose scheme is neither file:// nor
// tcp://. This is a configuration error: fatal at first use, never retried.
var ErrUnsupportedScheme = errors.New("unsupported bind scheme")

// localAuthority is the placeholder authority for unix-socket connections.
// The socket path determines routing, not the authority, so any canonical
// value works.
const localAuthority = "http://127.0.0.1:8000"

// Conn is a pooled transport handle bound to one resolved runner instance.
// Only the Manager may close it; everyone else treats it as read-only.
type Conn struct {
	scheme    string // "tcp" or "unix"
	baseURL   string
	transport *http.Transport
	closed    atomic.Bool
}

// Scheme returns "tcp" or "unix".
func (c *Conn) Scheme() string { return c.scheme }

// BaseURL returns the authority requests are addressed to.
func (c *Conn) BaseURL() string { return c.baseURL }

// RoundTripper exposes the pooled transport for session construction.
func (c *Conn) RoundTripper() http.RoundTripper { return c.transport }

// Closed reports whether the handle has been invalidated.
func (c *Conn) Closed() bool { return c.closed.Load() }

// close tears the handle down. Idle pooled connections are released;
// in-flight requests are left to finish rather than force-closed, so a
// rebuild cannot poison calls sharing the old pool.
func (c *Conn) close() {
	if c.closed.CompareAndSwap(false, true) {
		c.transport.CloseIdleConnections()
	}
}

// dial builds a Conn for a bind URI.
//
//	file://<path>      → unix-socket transport, placeholder authority
//	tcp://<host>:<port> → TCP transport addressed at the host
func dial(bindURI string, maxConns int, keepAlive time.Duration) (*Conn, error) {
	parsed, err := url.Parse(bindURI)
	if err != nil {
		return nil, fmt.Errorf("parse bind URI %q: %w", bindURI, err)
	}

	switch parsed.Scheme {
	case "file":
		socketPath := parsed.Path
		if parsed.Opaque != "" {
			socketPath = parsed.Opaque
		}
		return &Conn{
			scheme:    "unix",
			baseURL:   localAuthority,
			transport: newPooledTransport(maxConns, keepAlive, func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
			}),
		}, nil
	case "tcp":
		return &Conn{
			scheme:    "tcp",
			baseURL:   "http://" + parsed.Host,
			transport: newPooledTransport(maxConns, keepAlive, (&net.Dialer{}).DialContext),
		}, nil
	default:
		return nil, fmt.Errorf("%w %q in bind URI %q", ErrUnsupportedScheme, parsed.Scheme, bindURI)
	}
}

// newPooledTransport configures the shared pool: a hard cap on simultaneous
// connections and a long idle keep-alive, amortizing handshake cost across
// high-frequency small calls. Compression is disabled so the session layer
// sees response bytes exactly as the wire protocol produced them.
func newPooledTransport(maxConns int, keepAlive time.Duration, dialCtx func(context.Context, string, string) (net.Conn, error)) *http.Transport {
	return &http.Transport{
		DialContext:         dialCtx,
		MaxConnsPerHost:     maxConns,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		IdleConnTimeout:     keepAlive,
		DisableCompression:  true,
	}
}
