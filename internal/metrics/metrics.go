package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mutex             sync.RWMutex
	selections        map[string]int64
	successes         map[string]int64
	failures          map[string]int64
	breakerStates     map[string]string
	healthStatus      map[string]bool
	selectionFailures int64
	startTime         time.Time
}

type Snapshot struct {
	TotalSelections   int64                      `json:"total_selections"`
	SelectionFailures int64                      `json:"selection_failures"`
	Uptime            time.Duration              `json:"uptime"`
	Providers         map[string]ProviderMetrics `json:"providers"`
}

type ProviderMetrics struct {
	Selections   int64  `json:"selections"`
	Successes    int64  `json:"successes"`
	Failures     int64  `json:"failures"`
	BreakerState string `json:"breaker_state,omitempty"`
	Healthy      bool   `json:"healthy"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:    make(map[string]int64),
		successes:     make(map[string]int64),
		failures:      make(map[string]int64),
		breakerStates: make(map[string]string),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func (m *Metrics) RecordSelection(provider string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[provider]++
}

func (m *Metrics) RecordSelectionFailure() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selectionFailures++
}

func (m *Metrics) RecordOutcome(provider string, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if success {
		m.successes[provider]++
	} else {
		m.failures[provider]++
	}
}

func (m *Metrics) RecordBreakerState(provider, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerStates[provider] = state
}

func (m *Metrics) UpdateHealthStatus(provider string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[provider] = healthy
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		SelectionFailures: m.selectionFailures,
		Uptime:            time.Since(m.startTime),
		Providers:         make(map[string]ProviderMetrics),
	}

	allProviders := make(map[string]bool)
	for p := range m.selections {
		allProviders[p] = true
	}
	for p := range m.successes {
		allProviders[p] = true
	}
	for p := range m.failures {
		allProviders[p] = true
	}
	for p := range m.breakerStates {
		allProviders[p] = true
	}
	for p := range m.healthStatus {
		allProviders[p] = true
	}

	for p := range allProviders {
		snap.TotalSelections += m.selections[p]
		snap.Providers[p] = ProviderMetrics{
			Selections:   m.selections[p],
			Successes:    m.successes[p],
			Failures:     m.failures[p],
			BreakerState: m.breakerStates[p],
			Healthy:      m.healthStatus[p],
		}
	}

	return snap
}
