// Package params generalizes a call's argument list: an ordered sequence of
// positional values plus named keyword values. Map produces a new Params of
// the same shape, which is how every argument of a call is turned into a
// wire payload without losing its position or name.
package params

import "sort"

// Params holds the positional and keyword arguments of one call.
type Params[T any] struct {
	Args   []T
	Kwargs map[string]T
}

// New builds a Params from an argument list. Nil slices and maps are allowed.
func New[T any](args []T, kwargs map[string]T) Params[T] {
	return Params[T]{Args: args, Kwargs: kwargs}
}

// Count returns the total number of arguments, positional plus keyword.
func (p Params[T]) Count() int {
	return len(p.Args) + len(p.Kwargs)
}

// KwargNames returns the keyword argument names in sorted order, giving
// callers a deterministic iteration order over Kwargs.
func (p Params[T]) KwargNames() []string {
	names := make([]string, 0, len(p.Kwargs))
	for name := range p.Kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Leaves returns every argument value: positionals in order, then keywords
// in sorted-name order.
func (p Params[T]) Leaves() []T {
	leaves := make([]T, 0, p.Count())
	leaves = append(leaves, p.Args...)
	for _, name := range p.KwargNames() {
		leaves = append(leaves, p.Kwargs[name])
	}
	return leaves
}

// Map applies f to every argument, producing a Params of identical shape:
// same arity, same keyword names. The first error aborts the transform.
func Map[T, U any](p Params[T], f func(T) (U, error)) (Params[U], error) {
	out := Params[U]{}
	if p.Args != nil {
		out.Args = make([]U, 0, len(p.Args))
		for _, v := range p.Args {
			u, err := f(v)
			if err != nil {
				return Params[U]{}, err
			}
			out.Args = append(out.Args, u)
		}
	}
	if p.Kwargs != nil {
		out.Kwargs = make(map[string]U, len(p.Kwargs))
		for name, v := range p.Kwargs {
			u, err := f(v)
			if err != nil {
				return Params[U]{}, err
			}
			out.Kwargs[name] = u
		}
	}
	return out, nil
}

// AllEqual reports whether key derives the same value from every argument.
// Vacuously true for empty Params.
func AllEqual[T any, K comparable](p Params[T], key func(T) K) bool {
	leaves := p.Leaves()
	if len(leaves) < 2 {
		return true
	}
	first := key(leaves[0])
	for _, v := range leaves[1:] {
		if key(v) != first {
			return false
		}
	}
	return true
}
