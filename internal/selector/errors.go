package selector

import (
	"fmt"
	"strings"

	"github.com/voxroute/voxroute/internal/provider"
)

// ExclusionReason classifies which filter removed a candidate.
type ExclusionReason string

const (
	ReasonConfiguration ExclusionReason = "configuration"
	ReasonCircuit       ExclusionReason = "circuit"
	ReasonHealth        ExclusionReason = "health"
	ReasonInputSize     ExclusionReason = "input_size"
	ReasonFeatures      ExclusionReason = "features"
)

// Exclusion records why one candidate was filtered out of a selection.
type Exclusion struct {
	Provider string          `json:"provider"`
	Reason   ExclusionReason `json:"reason"`
	Detail   string          `json:"detail"`
}

// NoProviderAvailableError is the terminal selection failure. It carries
// the per-provider exclusion reasons so callers can explain exactly why
// each candidate was rejected.
type NoProviderAvailableError struct {
	Exclusions []Exclusion
}

func (e *NoProviderAvailableError) Error() string {
	if len(e.Exclusions) == 0 {
		return "no provider available: none registered"
	}

	parts := make([]string, len(e.Exclusions))
	for i, excl := range e.Exclusions {
		parts[i] = fmt.Sprintf("%s: %s", excl.Provider, excl.Detail)
	}
	return "no provider available: " + strings.Join(parts, "; ")
}

// InputTooLargeError reports a violated input size cap.
type InputTooLargeError struct {
	Provider string
	MaxBytes int64
	GotBytes int64
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("provider %q rejects input of %d bytes (cap %d bytes)",
		e.Provider, e.GotBytes, e.MaxBytes)
}

// UnhealthyError reports a failed health requirement for an explicitly
// requested provider.
type UnhealthyError struct {
	Provider string
	Message  string
}

func (e *UnhealthyError) Error() string {
	return fmt.Sprintf("provider %q unhealthy: %s", e.Provider, e.Message)
}

// MissingFeaturesError reports required features the provider lacks.
type MissingFeaturesError struct {
	Provider string
	Missing  []provider.Feature
}

func (e *MissingFeaturesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("provider %q missing required features: %s",
		e.Provider, strings.Join(names, ", "))
}
