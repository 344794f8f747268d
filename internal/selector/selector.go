package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/voxroute/voxroute/internal/circuitbreaker"
	"github.com/voxroute/voxroute/internal/health"
	"github.com/voxroute/voxroute/internal/provider"
)

// Criteria describes one selection request. The zero value asks for any
// configured provider with a non-open breaker.
type Criteria struct {
	// InputSizeBytes is the audio payload size, checked against each
	// provider's cap.
	InputSizeBytes int64

	// RequiredFeatures must all be supported by the chosen provider.
	RequiredFeatures []provider.Feature

	// PreferHealthCheck requires the chosen provider's cached (or freshly
	// probed) health to be good.
	PreferHealthCheck bool

	// ExplicitBackend pins the selection to one provider. It is validated
	// against every filter and fails hard; there is no silent fallback to
	// the auto-selection search.
	ExplicitBackend string
}

// Selector picks one usable provider by composing the registry,
// configuration state, circuit breakers, health cache, and capability
// constraints.
type Selector struct {
	registry *provider.Registry
	resolver *provider.Resolver
	breakers *circuitbreaker.Registry
	monitor  *health.Monitor
	logger   *slog.Logger
}

func New(
	registry *provider.Registry,
	breakers *circuitbreaker.Registry,
	monitor *health.Monitor,
	logger *slog.Logger,
) *Selector {
	return &Selector{
		registry: registry,
		resolver: registry.Resolver(),
		breakers: breakers,
		monitor:  monitor,
		logger:   logger,
	}
}

// Select returns the name of one usable provider, or a terminal error. With
// an explicit backend the specific filter failure is returned; otherwise
// candidates are walked in priority order and NoProviderAvailableError
// reports why each was excluded when none survive.
func (s *Selector) Select(ctx context.Context, criteria Criteria) (string, error) {
	if criteria.ExplicitBackend != "" {
		return s.selectExplicit(ctx, criteria)
	}

	candidates := s.candidatesByPriority()

	var exclusions []Exclusion
	for _, d := range candidates {
		if excl := s.evaluate(ctx, d, criteria); excl != nil {
			exclusions = append(exclusions, *excl)
			continue
		}

		// Final gate: claim the call slot. An open breaker past recovery
		// transitions to HALF_OPEN here and this call becomes the trial.
		if !s.breakers.GetBreaker(d.Name).Allow() {
			exclusions = append(exclusions, Exclusion{
				Provider: d.Name,
				Reason:   ReasonCircuit,
				Detail:   "circuit half-open, trial in flight",
			})
			continue
		}

		s.logger.Debug("provider selected",
			slog.String("provider", d.Name),
			slog.Int("priority", d.PriorityRank))
		return d.Name, nil
	}

	return "", &NoProviderAvailableError{Exclusions: exclusions}
}

func (s *Selector) selectExplicit(ctx context.Context, criteria Criteria) (string, error) {
	d, err := s.registry.Get(criteria.ExplicitBackend)
	if err != nil {
		return "", err
	}

	if err := s.validateExplicit(ctx, d, criteria); err != nil {
		return "", err
	}

	if !s.breakers.GetBreaker(d.Name).Allow() {
		return "", &circuitbreaker.CircuitOpenError{Provider: d.Name}
	}

	return d.Name, nil
}

// validateExplicit applies the same filters as auto-selection but surfaces
// each failure as its specific typed error.
func (s *Selector) validateExplicit(ctx context.Context, d *provider.Descriptor, criteria Criteria) error {
	if _, err := s.resolver.Resolve(d, nil); err != nil {
		return err
	}

	if !s.breakers.GetBreaker(d.Name).CanAttempt() {
		return &circuitbreaker.CircuitOpenError{Provider: d.Name}
	}

	if criteria.PreferHealthCheck {
		status, err := s.monitor.CheckOne(ctx, d.Name)
		if err != nil {
			return err
		}
		if !status.Healthy {
			return &UnhealthyError{Provider: d.Name, Message: status.Message}
		}
	}

	if d.MaxInputBytes > 0 && criteria.InputSizeBytes > d.MaxInputBytes {
		return &InputTooLargeError{
			Provider: d.Name,
			MaxBytes: d.MaxInputBytes,
			GotBytes: criteria.InputSizeBytes,
		}
	}

	if missing := d.Features.Missing(criteria.RequiredFeatures); len(missing) > 0 {
		return &MissingFeaturesError{Provider: d.Name, Missing: missing}
	}

	return nil
}

// evaluate runs the filter chain for one candidate and returns the first
// exclusion, or nil when the candidate survives. Filter order matters: the
// configuration check runs before the probe so unconfigured providers are
// never probed, and the breaker check runs before the health check so an
// open circuit skips the probe too.
func (s *Selector) evaluate(ctx context.Context, d *provider.Descriptor, criteria Criteria) *Exclusion {
	if _, err := s.resolver.Resolve(d, nil); err != nil {
		detail := "missing configuration"
		var missing *provider.MissingRequiredConfigError
		if errors.As(err, &missing) {
			detail = fmt.Sprintf("missing configuration: %s", strings.Join(missing.Missing, ", "))
		}
		return &Exclusion{Provider: d.Name, Reason: ReasonConfiguration, Detail: detail}
	}

	cb := s.breakers.GetBreaker(d.Name)
	if !cb.CanAttempt() {
		detail := "circuit open"
		if cb.State() == circuitbreaker.StateHalfOpen {
			detail = "circuit half-open, trial in flight"
		}
		return &Exclusion{Provider: d.Name, Reason: ReasonCircuit, Detail: detail}
	}

	if criteria.PreferHealthCheck {
		status, err := s.monitor.CheckOne(ctx, d.Name)
		if err != nil {
			return &Exclusion{Provider: d.Name, Reason: ReasonHealth, Detail: err.Error()}
		}
		if !status.Healthy {
			return &Exclusion{
				Provider: d.Name,
				Reason:   ReasonHealth,
				Detail:   fmt.Sprintf("unhealthy: %s", status.Message),
			}
		}
	}

	if d.MaxInputBytes > 0 && criteria.InputSizeBytes > d.MaxInputBytes {
		return &Exclusion{
			Provider: d.Name,
			Reason:   ReasonInputSize,
			Detail: fmt.Sprintf("input too large: %d bytes exceeds cap of %d bytes",
				criteria.InputSizeBytes, d.MaxInputBytes),
		}
	}

	if missing := d.Features.Missing(criteria.RequiredFeatures); len(missing) > 0 {
		return &Exclusion{
			Provider: d.Name,
			Reason:   ReasonFeatures,
			Detail:   fmt.Sprintf("missing features: %s", joinFeatures(missing)),
		}
	}

	return nil
}

// candidatesByPriority returns all registered descriptors sorted by
// priority rank ascending. The sort is stable so providers sharing a rank
// keep registration order.
func (s *Selector) candidatesByPriority() []*provider.Descriptor {
	candidates := s.registry.ListAll()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PriorityRank < candidates[j].PriorityRank
	})
	return candidates
}

// ValidateForInput checks a single provider's input size cap without
// running full selection, so callers can pre-validate an explicit choice.
func (s *Selector) ValidateForInput(name string, inputSizeBytes int64) error {
	d, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	if d.MaxInputBytes > 0 && inputSizeBytes > d.MaxInputBytes {
		return &InputTooLargeError{
			Provider: d.Name,
			MaxBytes: d.MaxInputBytes,
			GotBytes: inputSizeBytes,
		}
	}
	return nil
}

func joinFeatures(features []provider.Feature) string {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
