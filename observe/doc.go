// Package observe provides observability primitives for dependency calls.
//
// It bundles an OpenTelemetry tracer and meter behind Observer, a structured
// JSON Logger used by every other package in the module, and a Middleware
// that wraps a single dependency call with a client span, call metrics and a
// log entry.
//
// # Usage
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "checkout-api",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer obs.Shutdown(ctx)
//
//	mw, err := observe.MiddlewareFromObserver(obs)
//	call := mw.Wrap(observe.CallMeta{Service: "database"}, queryOrders)
//	err = call(ctx)
package observe
