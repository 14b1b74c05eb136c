package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordCallSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCall(context.Background(), CallMeta{Service: "database"}, 25*time.Millisecond, nil)

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricCallTotal); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCallTotal, got)
	}
	if got := sumValue(t, rm, MetricCallErrors); got != 0 {
		t.Errorf("%s = %d, want 0", MetricCallErrors, got)
	}

	hist := findMetric(rm, MetricCallDuration)
	if hist == nil {
		t.Fatalf("%s metric not found", MetricCallDuration)
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(data.DataPoints) != 1 {
		t.Fatalf("unexpected histogram data: %#v", hist.Data)
	}
	if data.DataPoints[0].Sum != 25 {
		t.Errorf("duration sum = %v, want 25", data.DataPoints[0].Sum)
	}
}

func TestMetrics_RecordCallFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCall(context.Background(), CallMeta{Service: "redis"}, time.Millisecond, errors.New("timeout"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricCallErrors); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCallErrors, got)
	}
}

func TestMetrics_Attributes(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCall(context.Background(), CallMeta{Service: "database", Operation: "lookup"}, time.Millisecond, nil)

	rm := collect(t, reader)
	sum := findMetric(rm, MetricCallTotal).Data.(metricdata.Sum[int64])
	attrs := sum.DataPoints[0].Attributes

	if v, ok := attrs.Value(attribute.Key("dependency.name")); !ok || v.AsString() != "database" {
		t.Errorf("dependency.name = %v", v)
	}
	if v, ok := attrs.Value(attribute.Key("dependency.operation")); !ok || v.AsString() != "lookup" {
		t.Errorf("dependency.operation = %v", v)
	}
}

func TestMetrics_RejectedAndTransitions(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRejected(context.Background(), CallMeta{Service: "ai-claude"})
	m.RecordRejected(context.Background(), CallMeta{Service: "ai-claude"})
	m.RecordStateChange(context.Background(), "ai-claude", "closed", "open")

	rm := collect(t, reader)
	if got := sumValue(t, rm, MetricCallRejected); got != 2 {
		t.Errorf("%s = %d, want 2", MetricCallRejected, got)
	}
	if got := sumValue(t, rm, MetricStateTransitions); got != 1 {
		t.Errorf("%s = %d, want 1", MetricStateTransitions, got)
	}

	dp := findMetric(rm, MetricStateTransitions).Data.(metricdata.Sum[int64]).DataPoints[0]
	if v, _ := dp.Attributes.Value("breaker.to"); v.AsString() != "open" {
		t.Errorf("breaker.to = %v, want open", v)
	}
}
