package cache

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// pointsByCache returns the int64 data points of metric name keyed by the
// cache attribute.
func pointsByCache(t *testing.T, rm metricdata.ResourceMetrics, name string) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			default:
				t.Fatalf("%s: unexpected data type %T", name, m.Data)
			}
			for _, dp := range points {
				v, _ := dp.Attributes.Value(attribute.Key("cache"))
				out[v.AsString()] = dp.Value
			}
		}
	}
	return out
}

func TestRegisterMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	search := NewMemoryCache[any](Config{Name: NameSearch, MaxEntries: 1})
	ai := NewMemoryCache[string](Config{Name: NameAIResponse})

	reg, err := RegisterMetrics(mp.Meter("test"), search, ai)
	if err != nil {
		t.Fatalf("RegisterMetrics() error = %v", err)
	}

	search.Set("a", 1)
	search.Set("b", 2)
	search.Get("b")
	search.Get("a")
	ai.Set("q", "answer")
	ai.Get("q")

	rm := collect(t, reader)

	hits := pointsByCache(t, rm, MetricHits)
	if hits[NameSearch] != 1 || hits[NameAIResponse] != 1 {
		t.Errorf("%s = %v, want 1 per cache", MetricHits, hits)
	}
	if misses := pointsByCache(t, rm, MetricMisses); misses[NameSearch] != 1 {
		t.Errorf("%s[search] = %d, want 1", MetricMisses, misses[NameSearch])
	}
	if ev := pointsByCache(t, rm, MetricEvictions); ev[NameSearch] != 1 {
		t.Errorf("%s[search] = %d, want 1", MetricEvictions, ev[NameSearch])
	}
	if entries := pointsByCache(t, rm, MetricEntries); entries[NameSearch] != 1 || entries[NameAIResponse] != 1 {
		t.Errorf("%s = %v, want 1 per cache", MetricEntries, entries)
	}
	if mem := pointsByCache(t, rm, MetricMemoryBytes); mem[NameAIResponse] <= 0 {
		t.Errorf("%s[ai-response] = %d, want positive", MetricMemoryBytes, mem[NameAIResponse])
	}

	if err := reg.Unregister(); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
}
