package health

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/thefiredev-cloud/depguard/observe"
	"github.com/thefiredev-cloud/depguard/resilience"
)

func gaugePoints(t *testing.T, rm metricdata.ResourceMetrics, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			g, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				t.Fatalf("%s: expected Gauge[int64], got %T", name, m.Data)
			}
			return g.DataPoints
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func byDependency(points []metricdata.DataPoint[int64]) map[string]int64 {
	out := make(map[string]int64, len(points))
	for _, dp := range points {
		v, _ := dp.Attributes.Value(attribute.Key("dependency.name"))
		out[v.AsString()] = dp.Value
	}
	return out
}

func TestRegisterMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	reg := newTestRegistry(t)
	if _, err := RegisterMetrics(mp.Meter("test"), reg); err != nil {
		t.Fatalf("RegisterMetrics() error = %v", err)
	}

	cb, _ := reg.CircuitBreaker(resilience.ServiceDatabase)
	_ = cb.ForceState(resilience.StateOpen)
	reg.MarkUnhealthy(resilience.ServiceRedis, "ping timeout")
	reg.MarkUnhealthy(resilience.ServiceRedis, "ping timeout")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	states := byDependency(gaugePoints(t, rm, MetricBreakerState))
	if states[resilience.ServiceDatabase] != int64(resilience.StateOpen) {
		t.Errorf("database state = %d, want %d", states[resilience.ServiceDatabase], resilience.StateOpen)
	}
	if states[resilience.ServiceRedis] != int64(resilience.StateClosed) {
		t.Errorf("redis state = %d, want closed", states[resilience.ServiceRedis])
	}

	failures := byDependency(gaugePoints(t, rm, MetricConsecutiveFailures))
	if failures[resilience.ServiceRedis] != 2 {
		t.Errorf("redis failures = %d, want 2", failures[resilience.ServiceRedis])
	}

	overall := gaugePoints(t, rm, MetricOverallHealth)
	if len(overall) != 1 || overall[0].Value != int64(StatusUnhealthy) {
		t.Errorf("overall = %+v, want one point of %d", overall, StatusUnhealthy)
	}
}

func TestRegistry_StateChangeMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	reg, err := NewRegistry(RegistryConfig{Metrics: metrics})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		reg.RecordFailure(resilience.ServiceAI, errDown)
	}
	_ = reg.Execute(context.Background(), resilience.ServiceAI, func(ctx context.Context) error { return nil })

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if got := sumOf(rm, observe.MetricStateTransitions); got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
	if got := sumOf(rm, observe.MetricCallRejected); got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
