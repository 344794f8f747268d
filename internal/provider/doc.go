// Package provider defines the capability descriptors for transcription
// providers and the registry that stores them.
//
// A Descriptor is static metadata: name, priority rank, input size cap,
// supported features, required settings keys, plus the probe and construct
// functions the provider package supplies. Live state such as circuit
// breaker position and cached health is owned by other packages; the
// registry only answers what a provider could do, never whether it is
// currently usable.
package provider
