package health

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricBreakerState        = "dependency.breaker.state"
	MetricConsecutiveFailures = "dependency.consecutive_failures"
	MetricOverallHealth       = "dependency.overall_health"
)

// RegisterMetrics exports registry health as observable gauges. Breaker
// state is 0 closed, 1 open, 2 half-open; overall health is 0 healthy,
// 1 degraded, 2 unhealthy.
func RegisterMetrics(meter metric.Meter, reg *Registry) (metric.Registration, error) {
	state, err := meter.Int64ObservableGauge(MetricBreakerState,
		metric.WithDescription("Circuit breaker state per dependency"),
	)
	if err != nil {
		return nil, fmt.Errorf("health: create state gauge: %w", err)
	}

	failures, err := meter.Int64ObservableGauge(MetricConsecutiveFailures,
		metric.WithDescription("Consecutive failures per dependency"),
	)
	if err != nil {
		return nil, fmt.Errorf("health: create failures gauge: %w", err)
	}

	overall, err := meter.Int64ObservableGauge(MetricOverallHealth,
		metric.WithDescription("Aggregate dependency health"),
	)
	if err != nil {
		return nil, fmt.Errorf("health: create overall gauge: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := reg.Stats()
		for name, st := range stats.Services {
			attrs := metric.WithAttributes(attribute.String("dependency.name", name))
			o.ObserveInt64(state, int64(st.CircuitState), attrs)
			o.ObserveInt64(failures, int64(st.ConsecutiveFailures), attrs)
		}
		o.ObserveInt64(overall, int64(stats.OverallHealth))
		return nil
	}, state, failures, overall)
}
