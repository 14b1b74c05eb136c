package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricCallTotal        = "dependency.call.total"
	MetricCallErrors       = "dependency.call.errors"
	MetricCallDuration     = "dependency.call.duration_ms"
	MetricCallRejected     = "dependency.call.rejected"
	MetricStateTransitions = "dependency.breaker.transitions"
)

// Metrics records dependency call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a completed dependency call with duration and error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordRejected records a call that was short-circuited by an open breaker.
	RecordRejected(ctx context.Context, meta CallMeta)

	// RecordStateChange records a breaker state transition.
	RecordStateChange(ctx context.Context, service, from, to string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	rejectCount  metric.Int64Counter
	transitions  metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the dependency call instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricCallTotal,
		metric.WithDescription("Total number of dependency calls attempted"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricCallErrors,
		metric.WithDescription("Total number of failed dependency calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	rejectCount, err := meter.Int64Counter(
		MetricCallRejected,
		metric.WithDescription("Calls rejected without reaching the dependency because the circuit was open"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		MetricStateTransitions,
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricCallDuration,
		metric.WithDescription("Dependency call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		rejectCount:  rejectCount,
		transitions:  transitions,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.Attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordRejected(ctx context.Context, meta CallMeta) {
	m.rejectCount.Add(ctx, 1, metric.WithAttributes(meta.Attributes()...))
}

func (m *metricsImpl) RecordStateChange(ctx context.Context, service, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency.name", service),
		attribute.String("breaker.from", from),
		attribute.String("breaker.to", to),
	))
}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}
func (noopMetrics) RecordRejected(ctx context.Context, meta CallMeta)               {}
func (noopMetrics) RecordStateChange(ctx context.Context, service, from, to string) {}
