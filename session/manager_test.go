package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"runner-rpc/registry"
	"runner-rpc/transport"
)

func managerForTest() (*Manager, *transport.Manager) {
	conns := transport.NewManager("iris_clf", registry.NewStaticMap(map[string]string{
		"iris_clf": "tcp://127.0.0.1:3000",
	}))
	return NewManager(conns), conns
}

func TestGetSessionIdempotent(t *testing.T) {
	m, _ := managerForTest()

	first, err := m.GetSession(context.Background())
	require.NoError(t, err)
	second, err := m.GetSession(context.Background())
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, DefaultTimeout, first.Timeout())
}

func TestGetSessionRebuildsAfterInvalidation(t *testing.T) {
	m, conns := managerForTest()

	first, err := m.GetSession(context.Background())
	require.NoError(t, err)

	// Closing the transport handle must invalidate the session too.
	conns.Invalidate()

	second, err := m.GetSession(context.Background())
	require.NoError(t, err)
	require.NotSame(t, first, second)
}

func TestGetSessionWithTimeout(t *testing.T) {
	m, _ := managerForTest()

	cached, err := m.GetSession(context.Background())
	require.NoError(t, err)

	explicit, err := m.GetSessionWithTimeout(context.Background(), 2*time.Second)
	require.NoError(t, err)
	require.NotSame(t, cached, explicit)
	require.Equal(t, 2*time.Second, explicit.Timeout())

	// Non-positive timeout means "use the default session".
	same, err := m.GetSessionWithTimeout(context.Background(), 0)
	require.NoError(t, err)
	require.Same(t, cached, same)

	// The explicit session shares the transport; the cached one is untouched.
	again, err := m.GetSession(context.Background())
	require.NoError(t, err)
	require.Same(t, cached, again)
}

func TestManagerInvalidateDropsCache(t *testing.T) {
	m, _ := managerForTest()

	first, err := m.GetSession(context.Background())
	require.NoError(t, err)

	m.Invalidate()

	second, err := m.GetSession(context.Background())
	require.NoError(t, err)
	require.NotSame(t, first, second)
}
