package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"runner-rpc/loadbalance"
	"runner-rpc/registry"
)

// State enumerates the connection lifecycle. Exposed for tests and
// diagnostics; callers should not branch on it.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// DefaultMaxConns caps simultaneous streams per runner instance.
	DefaultMaxConns = 800
	// DefaultKeepAlive holds idle pooled connections open between calls.
	DefaultKeepAlive = 30 * time.Minute
)

// Manager lazily builds and caches the pooled transport for one runner.
// It is the sole owner of the cached Conn: all mutation happens under its
// lock, which is what makes sharing the handle across callers race-free.
type Manager struct {
	runnerName string
	runners    registry.RunnerMap
	balancer   loadbalance.Balancer
	logger     *zap.Logger
	maxConns   int
	keepAlive  time.Duration

	mu    sync.Mutex
	state State
	conn  *Conn
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBalancer sets the strategy used to pick among resolved replicas.
func WithBalancer(b loadbalance.Balancer) ManagerOption {
	return func(m *Manager) { m.balancer = b }
}

// WithMaxConns overrides the per-instance connection cap.
func WithMaxConns(n int) ManagerOption {
	return func(m *Manager) { m.maxConns = n }
}

// WithKeepAlive overrides the idle keep-alive duration.
func WithKeepAlive(d time.Duration) ManagerOption {
	return func(m *Manager) { m.keepAlive = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager for the named runner. The runner map is an
// injected dependency, queried fresh on every rebuild rather than captured
// once at construction.
func NewManager(runnerName string, runners registry.RunnerMap, opts ...ManagerOption) *Manager {
	m := &Manager{
		runnerName: runnerName,
		runners:    runners,
		balancer:   &loadbalance.RoundRobinBalancer{},
		logger:     zap.NewNop(),
		maxConns:   DefaultMaxConns,
		keepAlive:  DefaultKeepAlive,
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetConnection returns the cached transport handle, building one first if
// the manager has never connected or the cached handle was invalidated.
// Idempotent while the handle stays valid: two calls return the same *Conn.
func (m *Manager) GetConnection(ctx context.Context) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateReady && m.conn != nil && !m.conn.Closed() {
		return m.conn, nil
	}

	m.state = StateConnecting
	m.conn = nil

	instances, err := m.runners.Resolve(ctx, m.runnerName)
	if err != nil {
		m.state = StateUninitialized
		return nil, fmt.Errorf("resolve runner %q: %w", m.runnerName, err)
	}
	inst, err := m.balancer.Pick(instances)
	if err != nil {
		m.state = StateUninitialized
		return nil, fmt.Errorf("pick instance for runner %q: %w", m.runnerName, err)
	}

	conn, err := dial(inst.URI, m.maxConns, m.keepAlive)
	if err != nil {
		m.state = StateUninitialized
		return nil, err
	}

	m.logger.Debug("runner transport ready",
		zap.String("runner", m.runnerName),
		zap.String("bind_uri", inst.URI),
		zap.String("scheme", conn.Scheme()),
	)

	m.conn = conn
	m.state = StateReady
	return conn, nil
}

// Invalidate closes the cached handle and moves to CLOSED. The next
// GetConnection rebuilds from CONNECTING with a fresh name resolution.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.close()
		m.conn = nil
	}
	m.state = StateClosed
}

// Close is Invalidate under a name that reads well at shutdown.
func (m *Manager) Close() error {
	m.Invalidate()
	return nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RunnerName returns the logical name this manager serves.
func (m *Manager) RunnerName() string { return m.runnerName }
