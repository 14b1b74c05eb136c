package health

import (
	"context"
	"time"
)

// Status represents the health verdict of a dependency or of the registry.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates recent failures without an open circuit.
	StatusDegraded
	// StatusUnhealthy indicates at least one open circuit.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result contains the outcome of an out-of-band probe.
type Result struct {
	// Status is the probe verdict. Degraded and Unhealthy both mark the
	// dependency unhealthy in the registry.
	Status Status

	// Message provides additional context about the status.
	Message string

	// Duration is how long the probe took.
	Duration time.Duration

	// Timestamp is when the probe was performed.
	Timestamp time.Time

	// Error is the error if the probe failed.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// Checker probes one dependency out of band, e.g. a database ping.
type Checker interface {
	// Name returns the registry service name this checker probes.
	Name() string

	// Check performs the probe.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// PingCheckerFunc builds a Checker from a ping-style function: a nil error
// is healthy, anything else unhealthy.
func PingCheckerFunc(name string, ping func(context.Context) error) *CheckerFunc {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := ping(ctx); err != nil {
			return Unhealthy("ping failed: "+err.Error(), err)
		}
		return Healthy("ping ok")
	})
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the probe.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
