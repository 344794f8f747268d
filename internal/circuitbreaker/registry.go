package circuitbreaker

import (
	"sync"
	"time"
)

// Registry lazily creates one breaker per provider name. Breakers share
// thresholds but track state independently, so a failing provider never
// affects another's breaker.
type Registry struct {
	mutex            sync.RWMutex
	breakers         map[string]*CircuitBreaker
	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
}

func NewRegistry(failureThreshold, successThreshold int, recoveryTimeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// GetBreaker returns the breaker for a provider, creating it on first
// reference.
func (r *Registry) GetBreaker(name string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.failureThreshold, r.successThreshold, r.recoveryTimeout)
	r.breakers[name] = cb
	return cb
}

// Stats returns the current state of every breaker created so far.
func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}

// Snapshots returns state and counters for every breaker created so far.
func (r *Registry) Snapshots() map[string]Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snaps := make(map[string]Snapshot, len(r.breakers))
	for name, cb := range r.breakers {
		snaps[name] = cb.Snapshot()
	}
	return snaps
}
