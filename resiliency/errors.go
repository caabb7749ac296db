package resiliency

import "errors"

// Sentinel errors for resiliency operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resiliency: circuit breaker is open")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resiliency: operation timed out")
)
