package circuitbreaker

import (
	"sync"
)

// Registry is a name-keyed store of breakers guaranteeing a single breaker
// per logical dependency regardless of how many call sites reference it.
// Construct one per process and pass it to whatever needs breakers; there is
// deliberately no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate returns the breaker registered under name, creating it from
// cfg on first use. The first registration wins: cfg is ignored when the
// name already exists.
func (r *Registry) GetOrCreate(name string, cfg Config) *CircuitBreaker {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()

	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cfg.Name = name
	cb = New(cfg)
	r.breakers[name] = cb
	return cb
}

// Get returns the breaker registered under name, or nil.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[name]
}

// GetAll returns a copy of the name -> breaker map.
func (r *Registry) GetAll() map[string]*CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		all[name] = cb
	}
	return all
}

// AllStats snapshots every registered breaker, keyed by name. Intended for
// health endpoints and admin tooling.
func (r *Registry) AllStats() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]Stats, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.Stats()
	}
	return stats
}

// Remove drops the breaker registered under name and reports whether one
// existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.breakers[name]
	delete(r.breakers, name)
	return exists
}

// Clear drops every registered breaker. Used for test isolation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}
