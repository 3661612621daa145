// Package loadbalance picks one runner instance when the runner map resolves
// a logical name to several replicas. The connection manager calls Pick once
// per (re)connect, not per call — a picked instance keeps serving through the
// pooled transport until the connection is invalidated.
package loadbalance

import (
	"runner-rpc/registry"
)

// Balancer selects one instance from a resolved replica set.
// Implementations must be goroutine-safe.
type Balancer interface {
	// Pick selects one instance from the available list.
	Pick(instances []registry.RunnerInstance) (*registry.RunnerInstance, error)

	// Name returns the strategy name, for logging.
	Name() string
}
