package resilience

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrInvalidState", ErrInvalidState},
		{"ErrOperationPanicked", ErrOperationPanicked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("%s is nil", tt.name)
			}
			if !strings.HasPrefix(tt.err.Error(), "resilience: ") {
				t.Errorf("%s message = %q, want resilience: prefix", tt.name, tt.err.Error())
			}
		})
	}
}

func TestOpenError(t *testing.T) {
	err := &OpenError{Name: "redis", RetryAfter: 1500 * time.Millisecond}

	if !errors.Is(err, ErrCircuitOpen) {
		t.Error("errors.Is(OpenError, ErrCircuitOpen) = false")
	}
	if err.Code() != CodeCircuitOpen {
		t.Errorf("Code() = %q, want %q", err.Code(), CodeCircuitOpen)
	}
	want := "resilience: circuit breaker for redis is open, retry after 1.5s"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAsOpenError(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", &OpenError{Name: "database"})

	got, ok := AsOpenError(wrapped)
	if !ok {
		t.Fatal("AsOpenError() did not find wrapped OpenError")
	}
	if got.Name != "database" {
		t.Errorf("Name = %q, want database", got.Name)
	}

	if _, ok := AsOpenError(errors.New("connection reset")); ok {
		t.Error("AsOpenError() matched an unrelated error")
	}
	if _, ok := AsOpenError(nil); ok {
		t.Error("AsOpenError(nil) = true")
	}
}
