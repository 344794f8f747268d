// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package and selects a text or JSON handler
// based on the running environment.
package logger
