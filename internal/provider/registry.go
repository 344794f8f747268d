package provider

import (
	"sync"
)

// Registry is the descriptor store. Registration happens once at startup;
// lookups are concurrent. Registration order is preserved for diagnostics
// and for breaking priority ties.
type Registry struct {
	mutex       sync.RWMutex
	descriptors map[string]*Descriptor
	order       []string
	resolver    *Resolver
}

// NewRegistry creates a registry backed by the given settings resolver.
func NewRegistry(resolver *Resolver) *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		resolver:    resolver,
	}
}

// Register adds a descriptor. Registering the same name twice returns
// DuplicateBackendError.
func (r *Registry) Register(d *Descriptor) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return &DuplicateBackendError{Name: d.Name}
	}

	r.descriptors[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Get returns the descriptor for name, or UnknownBackendError.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	d, exists := r.descriptors[name]
	if !exists {
		return nil, &UnknownBackendError{Name: name}
	}
	return d, nil
}

// ListAll returns every registered descriptor in registration order.
func (r *Registry) ListAll() []*Descriptor {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.descriptors[name])
	}
	return all
}

// ListConfigured returns the descriptors whose required settings are all
// present. The predicate is re-evaluated on every call since configuration
// may change at runtime.
func (r *Registry) ListConfigured() []*Descriptor {
	var configured []*Descriptor
	for _, d := range r.ListAll() {
		if r.resolver.Configured(d) {
			configured = append(configured, d)
		}
	}
	return configured
}

// Resolver returns the settings resolver the registry was built with.
func (r *Registry) Resolver() *Resolver {
	return r.resolver
}
