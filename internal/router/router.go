package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxroute/voxroute/internal/circuitbreaker"
	"github.com/voxroute/voxroute/internal/health"
	"github.com/voxroute/voxroute/internal/metrics"
	"github.com/voxroute/voxroute/internal/provider"
	"github.com/voxroute/voxroute/internal/selector"
)

// Router is the surface the pipeline orchestrator and diagnostics UI talk
// to. It binds the registry, settings resolver, circuit breakers, health
// monitor, and selector, and emits metric events for every decision.
type Router struct {
	registry  *provider.Registry
	resolver  *provider.Resolver
	breakers  *circuitbreaker.Registry
	monitor   *health.Monitor
	selector  *selector.Selector
	collector *metrics.Collector
	logger    *slog.Logger
}

// ProviderInfo is the static descriptor view plus the current configured
// state, for diagnostics display.
type ProviderInfo struct {
	Name          string              `json:"name"`
	PriorityRank  int                 `json:"priority_rank"`
	MaxInputBytes int64               `json:"max_input_bytes"`
	Features      provider.FeatureSet `json:"features"`
	Configured    bool                `json:"configured"`
}

func New(
	registry *provider.Registry,
	breakers *circuitbreaker.Registry,
	monitor *health.Monitor,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Router {
	return &Router{
		registry:  registry,
		resolver:  registry.Resolver(),
		breakers:  breakers,
		monitor:   monitor,
		selector:  selector.New(registry, breakers, monitor, logger),
		collector: collector,
		logger:    logger,
	}
}

// SelectProvider picks one usable provider for the given criteria. Every
// decision gets a trace ID so pipeline logs can be correlated with the
// metric stream.
func (r *Router) SelectProvider(ctx context.Context, criteria selector.Criteria) (string, error) {
	traceID := uuid.NewString()

	name, err := r.selector.Select(ctx, criteria)
	if err != nil {
		r.logger.Warn("provider selection failed",
			slog.String("trace_id", traceID),
			slog.String("error", err.Error()))
		r.collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventSelectionFailed,
			Timestamp: time.Now(),
			TraceID:   traceID,
			Reason:    err.Error(),
		})
		return "", err
	}

	r.logger.Info("provider selected",
		slog.String("trace_id", traceID),
		slog.String("provider", name))
	r.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventProviderSelected,
		Timestamp: time.Now(),
		Provider:  name,
		TraceID:   traceID,
	})
	return name, nil
}

// ValidateForInput checks a single provider's input size cap standalone.
func (r *Router) ValidateForInput(name string, inputSizeBytes int64) error {
	return r.selector.ValidateForInput(name, inputSizeBytes)
}

// Instantiate resolves the provider's merged settings and builds its
// transcription handle. Caller overrides take precedence over configured
// values and defaults.
func (r *Router) Instantiate(name string, overrides provider.Settings) (provider.Transcriber, error) {
	d, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	settings, err := r.resolver.Resolve(d, overrides)
	if err != nil {
		return nil, err
	}

	return d.Construct(settings, r.logger)
}

// ReportOutcome records the result of a real transcription attempt so the
// provider's breaker stays accurate. Callers must invoke this after every
// attempt through a handle obtained from Instantiate.
func (r *Router) ReportOutcome(name string, success bool) {
	cb := r.breakers.GetBreaker(name)
	before := cb.State()

	if success {
		cb.RecordSuccess()
	} else {
		cb.RecordFailure()
	}

	after := cb.State()
	if before != after {
		r.logger.Warn("circuit breaker state changed",
			slog.String("provider", name),
			slog.String("from", before.String()),
			slog.String("to", after.String()))
		r.collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventBreakerChanged,
			Timestamp: time.Now(),
			Provider:  name,
			Breaker:   after.String(),
		})
	}

	r.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventOutcomeReported,
		Timestamp: time.Now(),
		Provider:  name,
		Success:   success,
	})
}

// HealthSnapshot probes every registered provider, honoring the health
// cache, and returns the full status map for display.
func (r *Router) HealthSnapshot(ctx context.Context) map[string]health.Status {
	statuses := r.monitor.CheckAll(ctx)
	for name, status := range statuses {
		r.collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Provider:  name,
			Healthy:   status.Healthy,
		})
	}
	return statuses
}

// RefreshHealth bypasses the cache for a single provider.
func (r *Router) RefreshHealth(ctx context.Context, name string) (health.Status, error) {
	status, err := r.monitor.ForceRefresh(ctx, name)
	if err != nil {
		return health.Status{}, err
	}

	r.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventHealthChanged,
		Timestamp: time.Now(),
		Provider:  name,
		Healthy:   status.Healthy,
	})
	return status, nil
}

// ResetBreaker forces a provider's breaker back to CLOSED. Manual operator
// override only.
func (r *Router) ResetBreaker(name string) error {
	if _, err := r.registry.Get(name); err != nil {
		return err
	}

	r.breakers.GetBreaker(name).Reset()
	r.logger.Warn("circuit breaker manually reset", slog.String("provider", name))
	r.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventBreakerChanged,
		Timestamp: time.Now(),
		Provider:  name,
		Breaker:   circuitbreaker.StateClosed.String(),
	})
	return nil
}

// BreakerSnapshots returns breaker state and counters for diagnostics.
func (r *Router) BreakerSnapshots() map[string]circuitbreaker.Snapshot {
	return r.breakers.Snapshots()
}

// Providers returns the descriptor overview with current configured state.
func (r *Router) Providers() []ProviderInfo {
	descriptors := r.registry.ListAll()
	infos := make([]ProviderInfo, 0, len(descriptors))
	for _, d := range descriptors {
		infos = append(infos, ProviderInfo{
			Name:          d.Name,
			PriorityRank:  d.PriorityRank,
			MaxInputBytes: d.MaxInputBytes,
			Features:      d.Features,
			Configured:    r.resolver.Configured(d),
		})
	}
	return infos
}
