package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func parseLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestLogger_WithFields verifies With fields are present in every entry.
func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("dependency", "database"))

	logger.Info(context.Background(), "first")
	logger.Warn(context.Background(), "second", F("attempt", 2))

	entries := parseLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e["dependency"] != "database" {
			t.Errorf("dependency = %v, want database", e["dependency"])
		}
	}
	if entries[1]["level"] != "warn" {
		t.Errorf("level = %v, want warn", entries[1]["level"])
	}
	if v, ok := entries[1]["attempt"].(float64); !ok || v != 2 {
		t.Errorf("attempt = %v, want 2", entries[1]["attempt"])
	}
}

// TestLogger_WithDoesNotMutateParent verifies derived loggers are independent.
func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.With(F("child", true))

	parent.Info(context.Background(), "parent only")

	entries := parseLines(t, &buf)
	if _, ok := entries[0]["child"]; ok {
		t.Error("parent logger should not carry child fields")
	}
}

// TestLogger_LevelFiltering verifies entries below the configured level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "debug")
	logger.Info(context.Background(), "info")
	logger.Warn(context.Background(), "warn")
	logger.Error(context.Background(), "error")

	entries := parseLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v, %v", entries[0]["msg"], entries[1]["msg"])
	}
}

// TestLogger_Redaction verifies sensitive keys are redacted.
func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("api_key", "sk-123"))

	logger.Info(context.Background(), "call",
		F("dsn", "postgres://user:pw@db/app"),
		F("prompt", "summarize protocol 42"),
		F("service", "ai-claude"),
	)

	entries := parseLines(t, &buf)
	for _, key := range []string{"api_key", "dsn", "prompt"} {
		if entries[0][key] != "[REDACTED]" {
			t.Errorf("%s = %v, want [REDACTED]", key, entries[0][key])
		}
	}
	if entries[0]["service"] != "ai-claude" {
		t.Errorf("service = %v, want ai-claude", entries[0]["service"])
	}
}

// TestLogger_ErrorValues verifies error values are rendered as strings.
func TestLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "failed", F("error", errors.New("connection refused")))

	entries := parseLines(t, &buf)
	if entries[0]["error"] != "connection refused" {
		t.Errorf("error = %v, want 'connection refused'", entries[0]["error"])
	}
}

// TestLogger_TraceID verifies the active span's trace id is attached.
func TestLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.Info(ctx, "inside span")

	entries := parseLines(t, &buf)
	if entries[0]["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entries[0]["trace_id"], span.SpanContext().TraceID())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"nope":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestLogger_ConcurrentWrites verifies lines from derived loggers never interleave.
func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l := base.With(F("worker", i))
			for j := 0; j < 50; j++ {
				l.Info(context.Background(), "tick")
			}
		}(i)
	}
	wg.Wait()

	if got := len(parseLines(t, &buf)); got != 1000 {
		t.Errorf("expected 1000 entries, got %d", got)
	}
}
