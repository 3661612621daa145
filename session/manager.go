package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"runner-rpc/transport"
)

// Manager caches one default-timeout session per valid connection handle,
// mirroring the connection manager's invalidation rules: when the underlying
// handle closes, the next GetSession rebuilds over a fresh connection.
type Manager struct {
	conns          *transport.Manager
	tracer         trace.Tracer
	defaultTimeout time.Duration

	mu      sync.Mutex
	session *Session
}

// ManagerOption configures a session Manager.
type ManagerOption func(*Manager)

// WithDefaultTimeout overrides the default total-call timeout.
func WithDefaultTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.defaultTimeout = d }
}

// WithTracerProvider sources the request tracer from the given provider
// instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) { m.tracer = tp.Tracer("runner-rpc/session") }
}

// NewManager creates a session Manager over a connection manager.
func NewManager(conns *transport.Manager, opts ...ManagerOption) *Manager {
	m := &Manager{
		conns:          conns,
		tracer:         otel.Tracer("runner-rpc/session"),
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetSession returns the cached default-timeout session, rebuilding it when
// absent or when its transport handle has been invalidated. Idempotent while
// the handle stays valid.
func (m *Manager) GetSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.valid() {
		return m.session, nil
	}

	conn, err := m.conns.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	m.session = newSession(conn, m.defaultTimeout, m.tracer)
	return m.session, nil
}

// GetSessionWithTimeout returns a session with an explicit total-call
// timeout over the same shared transport. Explicit-timeout sessions are not
// cached; they are cheap because they never own the transport.
func (m *Manager) GetSessionWithTimeout(ctx context.Context, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		return m.GetSession(ctx)
	}
	conn, err := m.conns.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(conn, timeout, m.tracer), nil
}

// Invalidate drops the cached session. The shared transport is left to its
// own manager; sessions never tear it down.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}
