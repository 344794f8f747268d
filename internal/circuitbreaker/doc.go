// Package circuitbreaker implements the circuit breaker pattern for
// transcription provider fault isolation.
//
// A circuit breaker stops routing work to a provider after repeated
// failures and probes recovery before resuming. It has three states:
//
//   - CLOSED: normal operation, calls permitted
//   - OPEN: provider failing, calls rejected
//   - HALF_OPEN: testing recovery, one trial call at a time
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 2, 60*time.Second)
//	cb := registry.GetBreaker("deepgram")
//	if cb.Allow() {
//	    // Attempt transcription...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
//
// Outcomes are always reported by the caller after a real transcription
// attempt; the breaker itself never makes network calls. State does not
// survive process restarts.
package circuitbreaker
