// Package bootstrap wires depguard's components from a config.Config: the
// telemetry Observer, the dependency Registry, the pre-built caches, the
// out-of-band Prober and the OTel gauges that report on them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/metric"

	"github.com/thefiredev-cloud/depguard/cache"
	"github.com/thefiredev-cloud/depguard/config"
	"github.com/thefiredev-cloud/depguard/health"
	"github.com/thefiredev-cloud/depguard/observe"
	"github.com/thefiredev-cloud/depguard/resilience"
)

type options struct {
	logOutput     io.Writer
	checkers      []health.Checker
	onStateChange resilience.StateChangeFunc
}

// Option configures Start.
type Option func(*options)

// WithLogOutput sends log entries to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithCheckers registers out-of-band probes. Each checker's Name must be a
// configured service.
func WithCheckers(checkers ...health.Checker) Option {
	return func(o *options) { o.checkers = append(o.checkers, checkers...) }
}

// WithStateChange is called for every breaker transition.
func WithStateChange(fn resilience.StateChangeFunc) Option {
	return func(o *options) { o.onStateChange = fn }
}

// Runtime holds the components built by Start.
type Runtime struct {
	Observer observe.Observer
	Registry *health.Registry
	Caches   *cache.Caches
	Prober   *health.Prober

	probe         config.ProbeConfig
	registrations []metric.Registration
}

// Start builds a Runtime from cfg. On error, anything already started is
// shut down.
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	oc := cfg.ObserverConfig()
	oc.Logging.Output = o.logOutput
	obs, err := observe.NewObserver(ctx, oc)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: observer: %w", err)
	}

	rt = &Runtime{Observer: obs, probe: cfg.Probe}
	defer func() {
		if err != nil {
			err = errors.Join(err, rt.Shutdown(context.WithoutCancel(ctx)))
			rt = nil
		}
	}()

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return rt, fmt.Errorf("bootstrap: metrics: %w", err)
	}

	rt.Registry, err = health.NewRegistry(health.RegistryConfig{
		Services:      cfg.RegistryServices(),
		Logger:        obs.Logger(),
		Tracer:        observe.NewTracer(obs.Tracer()),
		Metrics:       metrics,
		OnStateChange: o.onStateChange,
	})
	if err != nil {
		return rt, fmt.Errorf("bootstrap: registry: %w", err)
	}

	cc := cfg.CacheConfig()
	cc.Logger = obs.Logger()
	rt.Caches = cache.NewCaches(cc)

	pc := cfg.ProberConfig()
	pc.Logger = obs.Logger()
	rt.Prober = health.NewProber(rt.Registry, pc)
	for _, c := range o.checkers {
		if err := rt.Prober.Register(c); err != nil {
			return rt, fmt.Errorf("bootstrap: checker: %w", err)
		}
	}

	reg, err := health.RegisterMetrics(obs.Meter(), rt.Registry)
	if err != nil {
		return rt, fmt.Errorf("bootstrap: registry metrics: %w", err)
	}
	rt.registrations = append(rt.registrations, reg)

	reg, err = cache.RegisterMetrics(obs.Meter(), rt.Caches.All()...)
	if err != nil {
		return rt, fmt.Errorf("bootstrap: cache metrics: %w", err)
	}
	rt.registrations = append(rt.registrations, reg)

	obs.Logger().Info(ctx, "depguard started",
		observe.F("services", rt.Registry.Names()),
		observe.F("checkers", len(o.checkers)),
	)
	return rt, nil
}

// Handler serves the health endpoints for the registry.
func (rt *Runtime) Handler() http.Handler {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, rt.Registry)
	return mux
}

// RunProbes probes registered checkers at the configured interval until ctx
// is done. It returns immediately when the interval is zero or no checkers
// are registered.
func (rt *Runtime) RunProbes(ctx context.Context) {
	if rt.probe.Interval <= 0 || len(rt.Prober.CheckerNames()) == 0 {
		return
	}
	rt.Prober.Run(ctx, rt.probe.Interval)
}

// Shutdown unregisters metric callbacks and flushes telemetry.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	for _, reg := range rt.registrations {
		if err := reg.Unregister(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.registrations = nil

	if rt.Observer != nil {
		if err := rt.Observer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
