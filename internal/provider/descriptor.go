package provider

import (
	"context"
	"log/slog"
)

// Feature is a capability tag a provider may support, matched against the
// features a selection request requires.
type Feature string

const (
	FeatureDiarization       Feature = "diarization"
	FeatureTimestamps        Feature = "timestamps"
	FeatureTranslation       Feature = "translation"
	FeatureTopicDetection    Feature = "topic_detection"
	FeatureSentiment         Feature = "sentiment"
	FeatureLanguageDetection Feature = "language_detection"
)

// FeatureSet is the set of features one provider supports.
type FeatureSet []Feature

// Has reports whether the set contains the given feature.
func (fs FeatureSet) Has(f Feature) bool {
	for _, have := range fs {
		if have == f {
			return true
		}
	}
	return false
}

// Missing returns the required features the set does not cover.
func (fs FeatureSet) Missing(required []Feature) []Feature {
	var missing []Feature
	for _, f := range required {
		if !fs.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Settings are merged string key/value pairs a provider is constructed with.
type Settings map[string]string

// SettingsFunc returns the current configured settings for a provider.
// Re-evaluated on every call so credentials set after startup are seen.
type SettingsFunc func() Settings

// Probe checks whether a provider is currently reachable and usable.
// It must honor ctx cancellation and return a human-readable message
// alongside the verdict.
type Probe func(ctx context.Context) (healthy bool, message string, err error)

// Construct builds the provider's transcription handle from merged settings.
type Construct func(settings Settings, logger *slog.Logger) (Transcriber, error)

// Descriptor is the immutable capability record for one transcription
// provider. Descriptors are registered once at startup and never mutated;
// live state (breaker, health) lives elsewhere.
type Descriptor struct {
	// Name uniquely identifies the provider ("deepgram", "whisper", ...).
	Name string

	// PriorityRank orders auto-selection, lower is preferred.
	PriorityRank int

	// MaxInputBytes caps accepted audio size. Zero means unbounded.
	MaxInputBytes int64

	// Features the provider supports.
	Features FeatureSet

	// RequiredKeys are the settings keys that must be non-empty for the
	// provider to count as configured.
	RequiredKeys []string

	// Defaults are provider-level default settings, overridden by
	// configured values and caller overrides.
	Defaults Settings

	// Probe is the health check supplied by the provider package.
	Probe Probe

	// Construct builds the Transcriber handle.
	Construct Construct
}
