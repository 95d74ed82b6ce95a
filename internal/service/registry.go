package service

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the watched services keyed by name, preserving the
// configuration order for chat output.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
	order    []string
}

// NewRegistry creates an empty service registry
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]*Service),
	}
}

// Add registers a service. Names must be unique.
func (r *Registry) Add(svc *Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[svc.Name()]; exists {
		return fmt.Errorf("service %q already registered", svc.Name())
	}
	r.services[svc.Name()] = svc
	r.order = append(r.order, svc.Name())
	return nil
}

// Get returns a service by name
func (r *Registry) Get(name string) (*Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// All returns the services in configuration order
func (r *Registry) All() []*Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Service, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.services[name])
	}
	return out
}

// Names returns the registered service names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

// Len returns the number of registered services
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
