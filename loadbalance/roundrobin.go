package loadbalance

import (
	"fmt"
	"sync/atomic"

	"runner-rpc/registry"
)

// RoundRobinBalancer cycles through instances in order, using an atomic
// counter so Pick needs no lock.
type RoundRobinBalancer struct {
	counter int64
}

// Pick selects the next instance in round-robin order.
func (b *RoundRobinBalancer) Pick(instances []registry.RunnerInstance) (*registry.RunnerInstance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no runner instances available")
	}
	index := atomic.AddInt64(&b.counter, 1) % int64(len(instances))
	return &instances[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return "RoundRobin"
}
