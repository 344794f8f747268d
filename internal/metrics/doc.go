// Package metrics provides real-time metrics collection for provider
// resolution.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Selection counts per provider and terminal selection failures
//   - Reported transcription outcomes (successes and failures)
//   - Circuit breaker state changes
//   - Health status tracking
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the selection path. Events are sent via a buffered channel with
// non-blocking semantics; under pressure events are dropped, never queued
// synchronously.
//
// Example usage:
//
//	collector := metrics.NewCollector(256, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:     metrics.EventProviderSelected,
//		Provider: "deepgram",
//	})
//
//	snapshot := collector.Snapshot()
//
// Shutdown drains pending events so short-lived processes do not lose
// the tail of their metrics.
package metrics
