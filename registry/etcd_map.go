// etcd-backed RunnerMap.
//
// Runner deployments announce themselves under a shared prefix:
//
//	Key:   /runner-rpc/{runnerName}/{bindURI}
//	Value: JSON-encoded RunnerInstance
//
// Registration uses TTL-based leases: if the runner process dies, the lease
// expires and the entry disappears on its own, so clients stop resolving to
// ghost instances.
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const etcdPrefix = "/runner-rpc/"

// EtcdMap implements RunnerMap on top of etcd v3. It also carries the
// registration side so a runner process can announce its own bind URI.
type EtcdMap struct {
	client *clientv3.Client // etcd client is goroutine-safe and shared
}

// NewEtcdMap connects to the given etcd endpoints.
func NewEtcdMap(endpoints []string) (*EtcdMap, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd: %w", err)
	}
	return &EtcdMap{client: c}, nil
}

// Resolve implements RunnerMap: all instances currently registered under the
// runner's prefix. Malformed entries are skipped rather than failing the
// whole lookup.
func (m *EtcdMap) Resolve(ctx context.Context, runnerName string) ([]RunnerInstance, error) {
	prefix := etcdPrefix + runnerName + "/"
	resp, err := m.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("resolve runner %q: %w", runnerName, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("runner %q not found in runner map", runnerName)
	}

	instances := make([]RunnerInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst RunnerInstance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Register announces a runner instance with a TTL lease and keeps the lease
// alive in the background until the context is cancelled or the process dies.
func (m *EtcdMap) Register(ctx context.Context, runnerName string, inst RunnerInstance, ttl int64) error {
	lease, err := m.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("encode instance: %w", err)
	}

	key := etcdPrefix + runnerName + "/" + inst.URI
	if _, err := m.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("register runner %q: %w", runnerName, err)
	}

	ch, err := m.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("keep lease alive: %w", err)
	}
	// Drain keepalive acks so the channel never fills up.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister removes a runner instance, typically during graceful shutdown
// before the bind socket closes.
func (m *EtcdMap) Deregister(ctx context.Context, runnerName, uri string) error {
	_, err := m.client.Delete(ctx, etcdPrefix+runnerName+"/"+uri)
	if err != nil {
		return fmt.Errorf("deregister runner %q: %w", runnerName, err)
	}
	return nil
}

// Watch emits the full instance list whenever the runner's prefix changes:
// registrations, deregistrations, lease expirations.
func (m *EtcdMap) Watch(ctx context.Context, runnerName string) <-chan []RunnerInstance {
	ch := make(chan []RunnerInstance, 1)
	prefix := etcdPrefix + runnerName + "/"

	go func() {
		defer close(ch)
		watchChan := m.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			// Re-fetch the full list on any change; cheaper to reason about
			// than applying individual watch events.
			instances, err := m.Resolve(ctx, runnerName)
			if err != nil {
				instances = nil
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Close releases the etcd client.
func (m *EtcdMap) Close() error {
	return m.client.Close()
}
