package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 100,
		ResetTimeout:     time.Minute,
	})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

func BenchmarkCircuitBreaker_Execute_Open(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{ResetTimeout: time.Hour})
	_ = cb.ForceState(StateOpen)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkCircuitBreaker_RecordFailure measures window pruning under a
// steady stream of failures that never reaches the threshold.
func BenchmarkCircuitBreaker_RecordFailure(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1 << 30,
		FailureWindow:    time.Millisecond,
	})
	err := errors.New("timeout")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb.RecordFailure(err)
	}
}

func BenchmarkCircuitBreaker_Stats(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Stats()
	}
}

func BenchmarkCircuitBreaker_Parallel(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 100})
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = cb.Execute(ctx, func(ctx context.Context) error {
				return nil
			})
		}
	})
}
