package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Provider excluded
	StateHalfOpen              // Probing recovery with trial calls
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitOpenError is returned when a call is rejected because the breaker
// is open. Expected during outages, not a bug.
type CircuitOpenError struct {
	Provider string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for provider %q", e.Provider)
}

// CircuitBreaker isolates one provider. Outcomes are reported by the caller
// after real transcription attempts; the breaker never performs I/O itself.
type CircuitBreaker struct {
	mutex sync.Mutex

	state     State
	failures  int
	successes int // consecutive, meaningful only in HALF_OPEN
	openedAt  time.Time

	// trialInFlight enforces the single-trial rule in HALF_OPEN. Set when
	// Allow grants a trial, cleared by the next RecordSuccess/RecordFailure.
	trialInFlight bool

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
}

// Snapshot is a point-in-time view of breaker state for diagnostics.
type Snapshot struct {
	State                string    `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	OpenedAt             time.Time `json:"opened_at,omitzero"`
}

// NewCircuitBreaker creates a breaker in CLOSED state. failureThreshold
// failures open it, successThreshold half-open successes close it again,
// and recoveryTimeout gates the OPEN to HALF_OPEN transition.
func NewCircuitBreaker(failureThreshold, successThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// CanAttempt reports whether a call would currently be permitted, without
// changing state or claiming the half-open trial slot. Selection uses this
// for filtering so that candidates rejected by a later filter never consume
// a trial.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		return time.Since(cb.openedAt) >= cb.recoveryTimeout
	case StateHalfOpen:
		return !cb.trialInFlight
	default:
		return true
	}
}

// Allow permits or rejects a call. An OPEN breaker past its recovery
// timeout transitions to HALF_OPEN and the call through as the trial.
// While a trial is in flight, further calls are rejected as if open.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.recoveryTimeout {
			cb.state = StateHalfOpen
			cb.successes = 0
			cb.trialInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	default:
		return true
	}
}

// RecordSuccess reports a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.trialInFlight = false

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}

// RecordFailure reports a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.trialInFlight = false

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.successes = 0
	case StateOpen:
		cb.failures++
	}
}

// Reset forces the breaker back to CLOSED. Manual operator intervention
// only, never invoked automatically.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.trialInFlight = false
	cb.openedAt = time.Time{}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Snapshot returns the current state and counters for diagnostics.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Snapshot{
		State:                cb.state.String(),
		ConsecutiveFailures:  cb.failures,
		ConsecutiveSuccesses: cb.successes,
		OpenedAt:             cb.openedAt,
	}
}
