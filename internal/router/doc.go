// Package router exposes the provider resolution surface: selection,
// instantiation, outcome reporting, health snapshots, and manual breaker
// resets. It is the single entry point pipeline code and the diagnostics
// endpoint use; the underlying registry, breaker, and monitor packages are
// never reached around it.
package router
