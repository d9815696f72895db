package inspector

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is one of the three states of a Circuit.
type CircuitState int

// Supported states.
const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen describes a call refused because the circuit has tripped
// and the reset timeout has not yet elapsed. Circuit itself does not
// return it; Allow reports the same condition as false.
var ErrCircuitOpen = errors.New("inspector circuit open: too many consecutive driver failures")

// Circuit tracks consecutive DriverError failures. While it is open, Allow
// reports false and the Controller turns each job into an error result
// without launching the inspector. The fatal "inspector unavailable"
// escalation is decided separately by the Controller.
type Circuit struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu              sync.Mutex
	state           CircuitState
	failures        int
	lastFailureTime time.Time
}

// NewCircuit builds a Circuit that opens after failureThreshold consecutive
// failures and attempts a half-open probe after resetTimeout.
func NewCircuit(failureThreshold int, resetTimeout time.Duration) *Circuit {
	return &Circuit{failureThreshold: failureThreshold, resetTimeout: resetTimeout}
}

// Allow reports whether a new call may proceed, transitioning Open to
// HalfOpen once resetTimeout has elapsed.
func (c *Circuit) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == CircuitOpen {
		if time.Since(c.lastFailureTime) >= c.resetTimeout {
			c.state = CircuitHalfOpen
			return true
		}
		return false
	}
	return true
}

// RecordSuccess resets the failure count and closes the circuit.
func (c *Circuit) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.state = CircuitClosed
}

// RecordFailure increments the failure count, opening the circuit once the
// threshold is reached.
func (c *Circuit) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	c.lastFailureTime = time.Now()
	if c.failures >= c.failureThreshold {
		c.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (c *Circuit) State() CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Failures returns the current consecutive-failure count.
func (c *Circuit) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}
