package provider

import "github.com/alphadose/haxmap"

// Registry holds the adapter per provider key. It is safe for concurrent use;
// the HTTP layer reads it on every request.
type Registry struct {
	adapters *haxmap.Map[string, Adapter]
}

// NewRegistry builds a registry from the given adapters. A later adapter with
// the same key replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: haxmap.New[string, Adapter]()}
	for _, a := range adapters {
		r.adapters.Set(string(a.Key()), a)
	}
	return r
}

// Get returns the adapter registered for k.
func (r *Registry) Get(k Key) (Adapter, bool) {
	return r.adapters.Get(string(k))
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return int(r.adapters.Len())
}
