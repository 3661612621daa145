// Package runner describes a remote worker: its logical name and the
// methods it exposes, with the batching metadata the dispatcher needs.
package runner

import "runner-rpc/protocol"

// Method is the declared metadata of one callable runner method.
type Method struct {
	Name      string
	Batchable bool
	// BatchDim is the input dimension sliced for batching; meaningful only
	// when Batchable is set.
	BatchDim int
}

// Runner references a remote worker by logical name. The bind URI is not
// part of the reference; it is resolved through the runner map at connect
// time.
type Runner struct {
	Name    string
	methods map[string]Method
}

// New declares a runner and its methods.
func New(name string, methods ...Method) *Runner {
	r := &Runner{
		Name:    name,
		methods: make(map[string]Method, len(methods)),
	}
	for _, m := range methods {
		r.methods[m.Name] = m
	}
	return r
}

// NewDefault declares a runner with a single non-batchable default method,
// the common shape for simple model servers.
func NewDefault(name string) *Runner {
	return New(name, Method{Name: protocol.DefaultMethod})
}

// Method looks up a declared method by name.
func (r *Runner) Method(name string) (Method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// Methods returns the declared method names.
func (r *Runner) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}
