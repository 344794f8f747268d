package provider

import (
	"context"
	"time"
)

// TranscribeOptions configures a single transcription request.
type TranscribeOptions struct {
	Language   string // "" = auto-detect
	Model      string // provider-specific model, "" = provider default
	Timestamps bool
}

// Segment is one transcribed span with timing.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcript is a provider-independent transcription result.
type Transcript struct {
	Text     string
	Language string
	Segments []Segment
	Provider string
}

// Transcriber is the capability handle the factory hands to callers. The
// resolution subsystem never invokes it; pipeline code does, then reports
// the outcome back so the circuit breaker stays accurate.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*Transcript, error)
}
