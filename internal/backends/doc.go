// Package backends groups the concrete transcription providers: two remote
// API services (deepgram, elevenlabs) and two locally hosted model runtimes
// (whisper, parakeet). Each subpackage exports a Descriptor constructor
// carrying the provider's capability metadata, health probe, and handle
// factory; the resolution subsystem treats all four uniformly through
// those descriptors.
package backends
