package resiliency

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all store calls.
	StateOpen
	// StateHalfOpen means the circuit is testing if the store recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker guarding a Guard's
// underlying cachestore.CacheStore calls.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive store-call failures before
	// the circuit opens. Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before a single
	// probe call is let through. Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the max probe calls allowed while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines whether a GetBinary/PutBinary error should
	// count against the breaker. Default: all non-nil errors count.
	IsFailure func(err error) bool
}

// circuitBreaker gates and records the outcome of a Guard's store calls. It
// has no notion of "operations" in the abstract - callers ask allow before
// reaching into the store and report the resulting error with recordResult.
type circuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	lastFailure   time.Time
	halfOpenCount int
}

func newCircuitBreaker(config CircuitBreakerConfig) *circuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &circuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// allow reports whether a store call may proceed, given the current state.
// While half-open, each allowed call takes one of HalfOpenMaxRequests probe
// slots; the slots are reset only when the breaker next enters half-open.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenCount++
	}

	return nil
}

// recordResult feeds the error (nil on success) from a GetBinary/PutBinary
// call back into the breaker's state machine.
func (cb *circuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	oldState := cb.state

	switch cb.state {
	case StateClosed:
		if isFailure {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.MaxFailures {
				cb.setState(StateOpen)
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if isFailure {
			cb.lastFailure = time.Now()
			cb.setState(StateOpen)
		} else {
			cb.successes++
			cb.setState(StateClosed)
			cb.failures = 0
			cb.successes = 0
		}
	}

	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// State returns the current circuit state, advancing open->half-open if the
// reset timeout has elapsed.
func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *circuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

func (cb *circuitBreaker) setState(state State) {
	cb.state = state
	if state == StateHalfOpen {
		cb.halfOpenCount = 0
	}
}
