// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including the diagnostics server, provider credentials, circuit breaker
// thresholds, and health check intervals.
package config
