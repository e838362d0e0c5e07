package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/pressstart/platform/internal/domain"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker protects a single external dependency (the code-review
// oracle). After failThreshold consecutive failures it opens and rejects
// calls until resetTimeout passes, then lets one probe through.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         CircuitState
	failures      int
	lastFailure   time.Time
	failThreshold int
	resetTimeout  time.Duration
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(failThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failThreshold: failThreshold,
		resetTimeout:  resetTimeout,
	}
}

// Check reports whether a call is currently allowed.
func (cb *CircuitBreaker) Check() domain.GuardResult {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			return domain.GuardResult{Allowed: true}
		}
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("circuit open, resets in %s", cb.resetTimeout-time.Since(cb.lastFailure)),
			Guard:   "circuit_breaker",
		}
	default:
		return domain.GuardResult{Allowed: true}
	}
}

// RecordSuccess closes the circuit after a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failures = 0
}

// RecordFailure counts a failed call, opening the circuit at the threshold.
// A failed half-open probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.failThreshold {
		cb.state = CircuitOpen
	}
}
