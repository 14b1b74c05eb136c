// Package resilience isolates callers from failing dependencies.
//
// CircuitBreaker counts failures inside a sliding window. Once
// FailureThreshold failures land inside FailureWindow the circuit opens and
// calls fail fast with *OpenError (which matches ErrCircuitOpen) until
// ResetTimeout has elapsed. The next read then moves the circuit to
// half-open, where SuccessThreshold successes close it again and a single
// failure reopens it. No timers or goroutines are involved: the OPEN to
// HALF_OPEN transition is evaluated lazily by Execute, CanExecute, State and
// Stats.
//
// The breaker does not retry, back off or time out calls; callers pass
// operations that already carry their own deadlines.
//
// # Usage
//
//	cb := resilience.NewDatabaseCircuitBreaker(nil)
//
//	rows, err := resilience.Do(ctx, cb, func(ctx context.Context) ([]Protocol, error) {
//	    return repo.Search(ctx, query)
//	})
//	if openErr, ok := resilience.AsOpenError(err); ok {
//	    w.Header().Set("Retry-After", strconv.Itoa(int(openErr.RetryAfter.Seconds())))
//	}
package resilience
