package observe

import (
	"context"
	"time"
)

// CallFunc is the signature of a dependency call wrapped by Middleware.
type CallFunc func(ctx context.Context) error

// Middleware wraps dependency calls with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a CallFunc safe for concurrent use.
//   - Context: the span context is propagated into the wrapped call.
//   - Errors: errors from the wrapped call are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with a client span, call metrics and a log entry.
func (m *Middleware) Wrap(meta CallMeta, fn CallFunc) CallFunc {
	return func(ctx context.Context) (err error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		defer func() {
			duration := time.Since(start)
			if r := recover(); r != nil {
				m.tracer.EndSpan(span, errPanicked)
				m.metrics.RecordCall(ctx, meta, duration, errPanicked)
				panic(r)
			}

			m.tracer.EndSpan(span, err)
			m.metrics.RecordCall(ctx, meta, duration, err)

			fields := []Field{
				F("dependency", meta.Service),
				F("duration_ms", float64(duration.Milliseconds())),
			}
			if meta.Operation != "" {
				fields = append(fields, F("operation", meta.Operation))
			}
			if err != nil {
				fields = append(fields, F("error", err.Error()))
				m.logger.Warn(ctx, "dependency call failed", fields...)
			} else {
				m.logger.Debug(ctx, "dependency call completed", fields...)
			}
		}()

		return fn(ctx)
	}
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
