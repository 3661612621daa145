// Package registry resolves a runner's logical name to the bind URIs of its
// live instances. The connection manager re-resolves on every rebuild, so a
// runner that comes up after the client does is found on the next call.
package registry

import (
	"context"
	"fmt"
)

// RunnerInstance is one addressable replica of a runner.
// URI uses the bind schemes of the wire protocol: "tcp://host:port" or
// "file:///path/to.sock".
type RunnerInstance struct {
	URI    string `json:"uri"`
	Weight int    `json:"weight,omitempty"` // Relative capacity for weighted balancing
}

// RunnerMap is the read-only name→bind-URI mapping the transport layer
// consumes. Implementations must be goroutine-safe.
type RunnerMap interface {
	// Resolve returns the live instances of the named runner.
	// An unknown name is an error; an empty instance list is not.
	Resolve(ctx context.Context, runnerName string) ([]RunnerInstance, error)
}

// StaticMap is a fixed in-process RunnerMap, used for single-process
// deployments and tests.
type StaticMap struct {
	instances map[string][]RunnerInstance
}

// NewStaticMap builds a StaticMap of single-instance runners from a
// name→URI table.
func NewStaticMap(uris map[string]string) *StaticMap {
	m := &StaticMap{instances: make(map[string][]RunnerInstance, len(uris))}
	for name, uri := range uris {
		m.instances[name] = []RunnerInstance{{URI: uri}}
	}
	return m
}

// NewStaticInstanceMap builds a StaticMap with explicit instance lists.
func NewStaticInstanceMap(instances map[string][]RunnerInstance) *StaticMap {
	m := &StaticMap{instances: make(map[string][]RunnerInstance, len(instances))}
	for name, list := range instances {
		m.instances[name] = append([]RunnerInstance(nil), list...)
	}
	return m
}

// Resolve implements RunnerMap.
func (m *StaticMap) Resolve(_ context.Context, runnerName string) ([]RunnerInstance, error) {
	list, ok := m.instances[runnerName]
	if !ok {
		return nil, fmt.Errorf("runner %q not found in runner map", runnerName)
	}
	return append([]RunnerInstance(nil), list...), nil
}
