package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"runner-rpc/registry"
)

// rotatingMap returns a different URI on every resolve, and counts them.
type rotatingMap struct {
	uris     []string
	resolves int
}

func (m *rotatingMap) Resolve(_ context.Context, _ string) ([]registry.RunnerInstance, error) {
	uri := m.uris[m.resolves%len(m.uris)]
	m.resolves++
	return []registry.RunnerInstance{{URI: uri}}, nil
}

func TestGetConnectionTCP(t *testing.T) {
	m := NewManager("iris_clf", registry.NewStaticMap(map[string]string{
		"iris_clf": "tcp://10.0.0.7:3000",
	}))

	conn, err := m.GetConnection(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tcp", conn.Scheme())
	require.Equal(t, "http://10.0.0.7:3000", conn.BaseURL())
	require.Equal(t, StateReady, m.State())
}

func TestGetConnectionUnixSocket(t *testing.T) {
	m := NewManager("iris_clf", registry.NewStaticMap(map[string]string{
		"iris_clf": "file:///tmp/runner_iris.sock",
	}))

	conn, err := m.GetConnection(context.Background())
	require.NoError(t, err)
	require.Equal(t, "unix", conn.Scheme())
	// Socket path decides routing; the authority is a fixed placeholder.
	require.Equal(t, "http://127.0.0.1:8000", conn.BaseURL())
}

func TestGetConnectionUnsupportedScheme(t *testing.T) {
	m := NewManager("iris_clf", registry.NewStaticMap(map[string]string{
		"iris_clf": "grpc://127.0.0.1:3000",
	}))

	_, err := m.GetConnection(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedScheme)
	require.Contains(t, err.Error(), "grpc")
	require.NotEqual(t, StateReady, m.State())
}

func TestGetConnectionIdempotent(t *testing.T) {
	runners := &rotatingMap{uris: []string{"tcp://127.0.0.1:3000"}}
	m := NewManager("iris_clf", runners)

	first, err := m.GetConnection(context.Background())
	require.NoError(t, err)
	second, err := m.GetConnection(context.Background())
	require.NoError(t, err)

	require.Same(t, first, second, "no duplicate transports while the handle is valid")
	require.Equal(t, 1, runners.resolves, "no re-resolution without invalidation")
}

func TestInvalidateRebuilds(t *testing.T) {
	runners := &rotatingMap{uris: []string{"tcp://127.0.0.1:3000", "tcp://127.0.0.1:3001"}}
	m := NewManager("iris_clf", runners)

	first, err := m.GetConnection(context.Background())
	require.NoError(t, err)

	m.Invalidate()
	require.Equal(t, StateClosed, m.State())
	require.True(t, first.Closed())

	second, err := m.GetConnection(context.Background())
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.False(t, second.Closed())
	require.Equal(t, "http://127.0.0.1:3001", second.BaseURL(), "rebuild must re-resolve the bind URI")
	require.Equal(t, StateReady, m.State())
}

func TestResolveErrorLeavesManagerRebuildable(t *testing.T) {
	m := NewManager("ghost", registry.NewStaticMap(map[string]string{}))

	_, err := m.GetConnection(context.Background())
	require.Error(t, err)
	require.Equal(t, StateUninitialized, m.State())
}
