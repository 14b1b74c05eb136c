package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thefiredev-cloud/depguard/observe"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the dependency recovered.
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

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Valid reports whether s is one of the three breaker states.
func (s State) Valid() bool {
	return s == StateClosed || s == StateOpen || s == StateHalfOpen
}

// StateChangeFunc is called after a breaker transitions between states.
type StateChangeFunc func(name string, from, to State)

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the protected dependency in errors, logs and callbacks.
	Name string

	// FailureThreshold is the number of failures inside FailureWindow that
	// opens a closed circuit.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of successes in half-open state needed
	// to close the circuit.
	// Default: 2
	SuccessThreshold int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// FailureWindow is the sliding window over which failures are counted.
	// Default: 60 seconds
	FailureWindow time.Duration

	// OnStateChange is called when the circuit state changes.
	OnStateChange StateChangeFunc

	// Logger receives transition and callback-panic logs.
	// Default: no-op logger
	Logger observe.Logger
}

// withDefaults returns a copy of c with zero fields defaulted.
func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = observe.NopLogger()
	}
	return c
}

// Stats is a point-in-time snapshot of a breaker's state and counters.
type Stats struct {
	State              State
	TotalRequests      int64
	TotalFailures      int64
	TotalSuccesses     int64
	CircuitOpenCount   int64
	WindowFailures     int
	LastFailureTime    time.Time
	LastSuccessTime    time.Time
	LastFailureMessage string
}

// CircuitBreaker implements the circuit breaker pattern with a sliding
// failure window. The OPEN to HALF_OPEN transition is evaluated lazily on
// read; the breaker owns no timers or goroutines.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger observe.Logger
	now    func() time.Time

	mu                sync.Mutex
	state             State
	failures          []time.Time // completion order, oldest first
	halfOpenSuccesses int
	openedAt          time.Time
	stats             Stats
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	config = config.withDefaults()

	return &CircuitBreaker{
		config: config,
		logger: config.Logger.With(observe.F("breaker", config.Name)),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Name returns the name of the protected dependency.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Config returns the effective configuration after defaults.
func (cb *CircuitBreaker) Config() CircuitBreakerConfig {
	return cb.config
}

// Execute runs op through the circuit breaker. When the circuit is open op is
// not called and an *OpenError is returned. Errors from op are returned
// unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	return cb.ExecuteWithFallback(ctx, op, nil)
}

// ExecuteWithFallback is Execute with a fallback invoked instead of op while
// the circuit is open. Fallback results are not counted as successes or
// failures.
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, op, fallback func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		if fallback != nil {
			return fallback(ctx)
		}
		return err
	}
	return cb.run(ctx, op)
}

// Do runs op through cb and returns its value.
func Do[T any](ctx context.Context, cb *CircuitBreaker, op func(context.Context) (T, error)) (T, error) {
	return DoWithFallback(ctx, cb, op, nil)
}

// DoWithFallback runs op through cb, substituting fallback while the circuit is open.
func DoWithFallback[T any](
	ctx context.Context,
	cb *CircuitBreaker,
	op func(context.Context) (T, error),
	fallback func(context.Context) (T, error),
) (T, error) {
	var out T
	wrapped := func(ctx context.Context) error {
		v, err := op(ctx)
		out = v
		return err
	}

	var fb func(context.Context) error
	if fallback != nil {
		fb = func(ctx context.Context) error {
			v, err := fallback(ctx)
			out = v
			return err
		}
	}

	err := cb.ExecuteWithFallback(ctx, wrapped, fb)
	return out, err
}

// acquire admits a request or returns an *OpenError. Admission and request
// counting happen under one lock.
func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	now := cb.now()
	tr := cb.refreshLocked(now)

	var err error
	if cb.state == StateOpen {
		err = cb.openErrorLocked(now)
	} else {
		cb.stats.TotalRequests++
	}
	cb.mu.Unlock()

	cb.notify(tr)
	return err
}

func (cb *CircuitBreaker) run(ctx context.Context, op func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cb.RecordFailure(fmt.Errorf("%w: %v", ErrOperationPanicked, r))
			panic(r)
		}
	}()

	err = op(ctx)
	if err != nil {
		cb.RecordFailure(err)
	} else {
		cb.RecordSuccess()
	}
	return err
}

// CanExecute reports whether a request would currently be admitted.
func (cb *CircuitBreaker) CanExecute() bool {
	return cb.State() != StateOpen
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	tr := cb.refreshLocked(cb.now())
	state := cb.state
	cb.mu.Unlock()

	cb.notify(tr)
	return state
}

// Stats returns a snapshot of the breaker state and counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	now := cb.now()
	tr := cb.refreshLocked(now)
	cb.pruneLocked(now)

	stats := cb.stats
	stats.State = cb.state
	stats.WindowFailures = len(cb.failures)
	cb.mu.Unlock()

	cb.notify(tr)
	return stats
}

// RecordSuccess records a successful call. In half-open state enough
// successes close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	now := cb.now()
	cb.stats.TotalSuccesses++
	cb.stats.LastSuccessTime = now

	var tr *transition
	if cb.state == StateHalfOpen {
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.SuccessThreshold {
			tr = cb.setStateLocked(StateClosed, now)
		}
	}
	cb.mu.Unlock()

	cb.notify(tr)
}

// RecordFailure records a failed call. A closed circuit opens once the
// in-window failure count reaches the threshold; a half-open circuit reopens
// on the first failure.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	now := cb.now()
	cb.stats.TotalFailures++
	cb.stats.LastFailureTime = now
	cb.stats.LastFailureMessage = failureMessage(err)

	cb.failures = append(cb.failures, now)
	cb.pruneLocked(now)

	var tr *transition
	switch cb.state {
	case StateClosed:
		if len(cb.failures) >= cb.config.FailureThreshold {
			tr = cb.setStateLocked(StateOpen, now)
		}
	case StateHalfOpen:
		tr = cb.setStateLocked(StateOpen, now)
	}
	cb.mu.Unlock()

	cb.notify(tr)
}

// ForceState sets the state directly without firing OnStateChange or
// touching counters. Forcing StateOpen starts a fresh reset timeout.
func (cb *CircuitBreaker) ForceState(state State) error {
	if !state.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidState, int(state))
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = state
	if state == StateOpen {
		cb.openedAt = cb.now()
	}
	return nil
}

// Reset returns the breaker to closed state with all counters zeroed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = nil
	cb.halfOpenSuccesses = 0
	cb.openedAt = time.Time{}
	cb.stats = Stats{}
}

// RetryAfter returns how long until an open circuit will admit a probe.
// It is zero unless the circuit is open.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}
	return cb.retryAfterLocked(cb.now())
}

type transition struct {
	from, to State
}

// refreshLocked performs the lazy OPEN to HALF_OPEN transition.
func (cb *CircuitBreaker) refreshLocked(now time.Time) *transition {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.config.ResetTimeout {
		return cb.setStateLocked(StateHalfOpen, now)
	}
	return nil
}

func (cb *CircuitBreaker) setStateLocked(to State, now time.Time) *transition {
	from := cb.state
	cb.state = to
	cb.halfOpenSuccesses = 0

	switch to {
	case StateOpen:
		cb.openedAt = now
		cb.stats.CircuitOpenCount++
	case StateClosed:
		cb.failures = nil
	}

	return &transition{from: from, to: to}
}

// pruneLocked drops failure timestamps older than the window.
func (cb *CircuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-cb.config.FailureWindow)
	i := 0
	for i < len(cb.failures) && cb.failures[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

func (cb *CircuitBreaker) retryAfterLocked(now time.Time) time.Duration {
	remaining := cb.config.ResetTimeout - now.Sub(cb.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (cb *CircuitBreaker) openErrorLocked(now time.Time) *OpenError {
	return &OpenError{
		Name:       cb.config.Name,
		RetryAfter: cb.retryAfterLocked(now),
	}
}

// notify logs a transition and invokes OnStateChange outside the lock.
func (cb *CircuitBreaker) notify(tr *transition) {
	if tr == nil {
		return
	}

	ctx := context.Background()
	fields := []observe.Field{
		observe.F("from", tr.from.String()),
		observe.F("to", tr.to.String()),
	}
	if tr.to == StateOpen {
		cb.logger.Warn(ctx, "circuit breaker opened", fields...)
	} else {
		cb.logger.Info(ctx, "circuit breaker state changed", fields...)
	}

	if cb.config.OnStateChange == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			cb.logger.Error(ctx, "state change callback panicked",
				append(fields, observe.F("panic", fmt.Sprint(r)))...)
		}
	}()
	cb.config.OnStateChange(cb.config.Name, tr.from, tr.to)
}

func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
