package resilience

import (
	"testing"
	"time"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		reset     time.Duration
		window    time.Duration
	}{
		{ServiceDatabase, 5, 2, 30 * time.Second, 60 * time.Second},
		{ServiceAI, 3, 2, 60 * time.Second, 120 * time.Second},
		{ServiceRedis, 5, 3, 10 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ok := Preset(tt.name)
			if !ok {
				t.Fatalf("Preset(%q) not found", tt.name)
			}
			if cfg.Name != tt.name {
				t.Errorf("Name = %q, want %q", cfg.Name, tt.name)
			}
			if cfg.FailureThreshold != tt.failures {
				t.Errorf("FailureThreshold = %d, want %d", cfg.FailureThreshold, tt.failures)
			}
			if cfg.SuccessThreshold != tt.successes {
				t.Errorf("SuccessThreshold = %d, want %d", cfg.SuccessThreshold, tt.successes)
			}
			if cfg.ResetTimeout != tt.reset {
				t.Errorf("ResetTimeout = %v, want %v", cfg.ResetTimeout, tt.reset)
			}
			if cfg.FailureWindow != tt.window {
				t.Errorf("FailureWindow = %v, want %v", cfg.FailureWindow, tt.window)
			}
		})
	}

	if _, ok := Preset("mongo"); ok {
		t.Error("Preset(mongo) should not exist")
	}
}

func TestFactories(t *testing.T) {
	var calls []string
	onChange := func(name string, from, to State) {
		calls = append(calls, name)
	}

	breakers := []*CircuitBreaker{
		NewDatabaseCircuitBreaker(onChange),
		NewAICircuitBreaker(onChange),
		NewRedisCircuitBreaker(onChange),
	}
	wantNames := []string{ServiceDatabase, ServiceAI, ServiceRedis}

	for i, cb := range breakers {
		if cb.Name() != wantNames[i] {
			t.Errorf("breaker %d Name() = %q, want %q", i, cb.Name(), wantNames[i])
		}
		if err := cb.ForceState(StateHalfOpen); err != nil {
			t.Fatalf("ForceState() error = %v", err)
		}
		cb.RecordFailure(nil)
	}

	if len(calls) != 3 {
		t.Fatalf("OnStateChange calls = %v, want one per breaker", calls)
	}
	for i, name := range calls {
		if name != wantNames[i] {
			t.Errorf("call %d name = %q, want %q", i, name, wantNames[i])
		}
	}
}

func TestFactories_NilCallback(t *testing.T) {
	cb := NewAICircuitBreaker(nil)
	for i := 0; i < 3; i++ {
		cb.RecordFailure(nil)
	}
	if cb.State() != StateOpen {
		t.Errorf("State = %v, want open after 3 AI failures", cb.State())
	}
}
