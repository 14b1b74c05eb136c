package resilience

import (
	"errors"
	"fmt"
	"time"
)

// CodeCircuitOpen is the machine-readable code carried by OpenError.
const CodeCircuitOpen = "CIRCUIT_BREAKER_OPEN"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is matched by every *OpenError via errors.Is.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrInvalidState is returned by ForceState for an unknown state value.
	ErrInvalidState = errors.New("resilience: invalid circuit state")

	// ErrOperationPanicked is recorded as the failure when an operation panics.
	ErrOperationPanicked = errors.New("resilience: operation panicked")
)

// OpenError is returned when a call is rejected because the circuit is open.
// The wrapped operation was not invoked.
type OpenError struct {
	// Name is the protected dependency.
	Name string

	// RetryAfter is the remaining cool-down before the circuit admits a probe.
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("resilience: circuit breaker for %s is open, retry after %s", e.Name, e.RetryAfter)
}

// Code returns CodeCircuitOpen.
func (e *OpenError) Code() string {
	return CodeCircuitOpen
}

// Unwrap returns ErrCircuitOpen so errors.Is(err, ErrCircuitOpen) holds.
func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}

// AsOpenError extracts an *OpenError from err's chain.
func AsOpenError(err error) (*OpenError, bool) {
	var openErr *OpenError
	if errors.As(err, &openErr) {
		return openErr, true
	}
	return nil, false
}
