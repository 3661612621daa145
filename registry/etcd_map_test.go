package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Needs a reachable etcd; set ETCD_ENDPOINTS (comma-separated) to enable.
func etcdMapForTest(t *testing.T) *EtcdMap {
	t.Helper()
	endpoints := os.Getenv("ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("ETCD_ENDPOINTS not set")
	}
	m, err := NewEtcdMap(strings.Split(endpoints, ","))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestEtcdMapRegisterResolve(t *testing.T) {
	m := etcdMapForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inst := RunnerInstance{URI: "tcp://127.0.0.1:18001", Weight: 10}
	require.NoError(t, m.Register(ctx, "etcd_test_runner", inst, 10))
	defer m.Deregister(ctx, "etcd_test_runner", inst.URI)

	instances, err := m.Resolve(ctx, "etcd_test_runner")
	require.NoError(t, err)
	require.Contains(t, instances, inst)
}

func TestEtcdMapDeregister(t *testing.T) {
	m := etcdMapForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inst := RunnerInstance{URI: "tcp://127.0.0.1:18002"}
	require.NoError(t, m.Register(ctx, "etcd_test_gone", inst, 10))
	require.NoError(t, m.Deregister(ctx, "etcd_test_gone", inst.URI))

	_, err := m.Resolve(ctx, "etcd_test_gone")
	require.Error(t, err)
}
