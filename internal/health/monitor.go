package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxroute/voxroute/internal/provider"
)

// Status is one provider's cached health check result. Every status carries
// a message, healthy or not, so UIs always have something to display.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

// entry is the per-provider cache slot. Each entry has its own lock so a
// slow probe for one provider never blocks checks on another.
type entry struct {
	mutex  sync.Mutex
	status Status
	valid  bool
}

// Monitor runs provider probes with a hard timeout and caches results for
// a bounded interval.
type Monitor struct {
	mutex   sync.Mutex // guards the entries map only
	entries map[string]*entry

	registry *provider.Registry
	ttl      time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMonitor creates a health monitor. ttl bounds how long a cached result
// stays fresh; timeout bounds each probe invocation.
func NewMonitor(registry *provider.Registry, ttl, timeout time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		entries:  make(map[string]*entry),
		registry: registry,
		ttl:      ttl,
		timeout:  timeout,
		logger:   logger,
	}
}

// CheckOne returns the provider's health, probing only when no fresh cached
// result exists. Probe errors and timeouts are recorded as unhealthy, never
// escalated.
func (m *Monitor) CheckOne(ctx context.Context, name string) (Status, error) {
	return m.check(ctx, name, false)
}

// ForceRefresh probes the provider regardless of cache freshness. Used for
// operator-triggered refresh actions.
func (m *Monitor) ForceRefresh(ctx context.Context, name string) (Status, error) {
	return m.check(ctx, name, true)
}

func (m *Monitor) check(ctx context.Context, name string, bypassCache bool) (Status, error) {
	d, err := m.registry.Get(name)
	if err != nil {
		return Status{}, err
	}

	e := m.entry(name)
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !bypassCache && e.valid && time.Since(e.status.CheckedAt) < m.ttl {
		return e.status, nil
	}

	status := m.runProbe(ctx, d.Probe)

	if e.valid && e.status.Healthy != status.Healthy {
		if status.Healthy {
			m.logger.Info("provider recovered",
				slog.String("provider", name),
				slog.String("message", status.Message))
		} else {
			m.logger.Warn("provider unhealthy",
				slog.String("provider", name),
				slog.String("message", status.Message))
		}
	}

	e.status = status
	e.valid = true
	return status, nil
}

type probeResult struct {
	healthy bool
	message string
	err     error
}

// runProbe executes the probe in its own goroutine so a hung probe cannot
// hold the caller past the timeout. The probe receives the timeout through
// its context and owns releasing whatever it holds on cancellation.
func (m *Monitor) runProbe(ctx context.Context, probe provider.Probe) Status {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resultCh := make(chan probeResult, 1)
	go func() {
		healthy, message, err := probe(probeCtx)
		resultCh <- probeResult{healthy: healthy, message: message, err: err}
	}()

	select {
	case res := <-resultCh:
		switch {
		case res.err != nil:
			return Status{Healthy: false, Message: res.err.Error(), CheckedAt: time.Now()}
		case res.message == "":
			return Status{Healthy: res.healthy, Message: "ok", CheckedAt: time.Now()}
		default:
			return Status{Healthy: res.healthy, Message: res.message, CheckedAt: time.Now()}
		}
	case <-probeCtx.Done():
		return Status{
			Healthy:   false,
			Message:   fmt.Sprintf("health check timed out after %s", m.timeout),
			CheckedAt: time.Now(),
		}
	}
}

// CheckAll probes every registered provider concurrently and returns once
// each probe has completed or timed out. One goroutine per provider; the
// registered count is small and fixed. A slow provider cannot block the
// others.
func (m *Monitor) CheckAll(ctx context.Context) map[string]Status {
	descriptors := m.registry.ListAll()

	var (
		wg      sync.WaitGroup
		mutex   sync.Mutex
		results = make(map[string]Status, len(descriptors))
	)

	for _, d := range descriptors {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			status, err := m.CheckOne(ctx, name)
			if err != nil {
				status = Status{Healthy: false, Message: err.Error(), CheckedAt: time.Now()}
			}

			mutex.Lock()
			results[name] = status
			mutex.Unlock()
		}(d.Name)
	}

	wg.Wait()
	return results
}

// Snapshot returns the cached statuses without probing. Providers never
// checked are absent from the map.
func (m *Monitor) Snapshot() map[string]Status {
	m.mutex.Lock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	m.mutex.Unlock()

	snapshot := make(map[string]Status, len(names))
	for _, name := range names {
		e := m.entry(name)
		e.mutex.Lock()
		if e.valid {
			snapshot[name] = e.status
		}
		e.mutex.Unlock()
	}
	return snapshot
}

func (m *Monitor) entry(name string) *entry {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, exists := m.entries[name]
	if !exists {
		e = &entry{}
		m.entries[name] = e
	}
	return e
}
