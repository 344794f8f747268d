// Package selector implements provider auto-selection. It walks registered
// providers in priority order, filtering on configuration, circuit breaker
// state, cached health, input size, and required features, and reports a
// per-provider exclusion reason whenever nothing qualifies.
package selector
