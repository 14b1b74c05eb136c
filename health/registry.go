package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thefiredev-cloud/depguard/observe"
	"github.com/thefiredev-cloud/depguard/resilience"
)

// ServiceConfig registers one dependency.
type ServiceConfig struct {
	// Name is the dependency name used by every Registry method.
	Name string

	// Breaker tunes the dependency's circuit breaker. Its Name, Logger and
	// OnStateChange are set by the registry.
	Breaker resilience.CircuitBreakerConfig
}

// DefaultServices returns the database, Redis and AI presets.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: resilience.ServiceDatabase, Breaker: resilience.DatabaseConfig()},
		{Name: resilience.ServiceRedis, Breaker: resilience.RedisConfig()},
		{Name: resilience.ServiceAI, Breaker: resilience.AIConfig()},
	}
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Services is the fixed set of dependencies.
	// Default: DefaultServices()
	Services []ServiceConfig

	// Logger receives breaker transitions and listener panics.
	// Default: no-op logger
	Logger observe.Logger

	// Tracer and Metrics instrument calls made through Execute.
	// Default: no-ops
	Tracer  observe.Tracer
	Metrics observe.Metrics

	// OnStateChange is called for every breaker transition after the
	// registry has logged and counted it.
	OnStateChange resilience.StateChangeFunc
}

// Listener is notified after every change to a service's health record.
type Listener func(name string, status ServiceStatus)

// ServiceStatus is a point-in-time view of one dependency.
type ServiceStatus struct {
	Name                string           `json:"name"`
	Available           bool             `json:"available"`
	CircuitState        resilience.State `json:"circuit_state"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	LastHealthCheck     time.Time        `json:"last_health_check"`
	Message             string           `json:"message,omitempty"`
}

// Stats is the registry-wide health report.
type Stats struct {
	Services      map[string]ServiceStatus `json:"services"`
	OverallHealth Status                   `json:"overall_health"`
	LastUpdated   time.Time                `json:"last_updated"`
}

type record struct {
	consecutiveFailures int
	lastHealthCheck     time.Time
	message             string
}

type service struct {
	name    string
	breaker *resilience.CircuitBreaker
	record  record // guarded by Registry.mu
}

// Registry maps each dependency name to its circuit breaker and health
// record. The set of names is fixed at construction.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Unknown names: Execute and ServiceStatus return ErrServiceNotFound;
//     record and mark methods are no-ops; IsAvailable reports false.
//   - Listeners: invoked synchronously after the registry lock is released,
//     in registration order. A panicking listener is logged and skipped.
type Registry struct {
	logger     observe.Logger
	metrics    observe.Metrics
	middleware *observe.Middleware
	now        func() time.Time

	services map[string]*service // immutable after NewRegistry
	order    []string

	mu     sync.Mutex
	nextID uint64
	ids    []uint64
	subs   map[uint64]Listener
}

// NewRegistry builds a registry from cfg.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Services == nil {
		cfg.Services = DefaultServices()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}

	r := &Registry{
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		middleware: observe.NewMiddleware(cfg.Tracer, cfg.Metrics, cfg.Logger),
		now:        time.Now,
		services:   make(map[string]*service, len(cfg.Services)),
		subs:       make(map[uint64]Listener),
	}

	onChange := r.stateChangeHook(cfg.OnStateChange)
	for _, sc := range cfg.Services {
		if sc.Name == "" {
			return nil, ErrInvalidServiceName
		}
		if _, dup := r.services[sc.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateService, sc.Name)
		}

		bc := sc.Breaker
		bc.Name = sc.Name
		bc.Logger = cfg.Logger
		bc.OnStateChange = onChange

		r.services[sc.Name] = &service{
			name:    sc.Name,
			breaker: resilience.NewCircuitBreaker(bc),
		}
		r.order = append(r.order, sc.Name)
	}

	return r, nil
}

func (r *Registry) stateChangeHook(next resilience.StateChangeFunc) resilience.StateChangeFunc {
	return func(name string, from, to resilience.State) {
		r.metrics.RecordStateChange(context.Background(), name, from.String(), to.String())
		if next != nil {
			next(name, from, to)
		}
	}
}

// Names returns the registered service names in configuration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// CircuitBreaker returns the breaker for name.
func (r *Registry) CircuitBreaker(name string) (*resilience.CircuitBreaker, bool) {
	svc, ok := r.services[name]
	if !ok {
		return nil, false
	}
	return svc.breaker, true
}

// IsAvailable reports whether name's breaker currently admits calls.
func (r *Registry) IsAvailable(name string) bool {
	svc, ok := r.services[name]
	return ok && svc.breaker.CanExecute()
}

// Execute runs fn through name's breaker and updates the health record with
// the outcome. When the circuit is open fn is not called, a
// *resilience.OpenError is returned and the health record is left alone.
func (r *Registry) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	return r.ExecuteOperation(ctx, name, "", fn)
}

// ExecuteOperation is Execute with an operation label for spans, metrics and
// logs, e.g. "search" or "messages.create".
func (r *Registry) ExecuteOperation(ctx context.Context, name, operation string, fn func(context.Context) error) error {
	svc, ok := r.services[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	meta := observe.CallMeta{Service: name, Operation: operation}
	invoked := false
	call := r.middleware.Wrap(meta, func(ctx context.Context) (err error) {
		invoked = true
		defer func() {
			if p := recover(); p != nil {
				r.update(svc, fmt.Errorf("%w: %v", resilience.ErrOperationPanicked, p))
				panic(p)
			}
		}()
		return fn(ctx)
	})

	err := svc.breaker.Execute(ctx, call)
	if !invoked {
		r.metrics.RecordRejected(ctx, meta)
		return err
	}

	// The breaker has already counted this call; only the record changes.
	r.update(svc, err)
	return err
}

// Do runs fn through name's breaker via reg.Execute and returns its value.
func Do[T any](ctx context.Context, reg *Registry, name string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := reg.Execute(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

// RecordSuccess clears name's failure streak and feeds the breaker a
// success. Use it for outcomes observed outside Execute.
func (r *Registry) RecordSuccess(name string) {
	svc, ok := r.services[name]
	if !ok {
		return
	}
	svc.breaker.RecordSuccess()
	r.update(svc, nil)
}

// RecordFailure extends name's failure streak and feeds the breaker a
// failure.
func (r *Registry) RecordFailure(name string, err error) {
	svc, ok := r.services[name]
	if !ok {
		return
	}
	if err == nil {
		err = ErrCheckFailed
	}
	svc.breaker.RecordFailure(err)
	r.update(svc, err)
}

// MarkHealthy clears name's failure streak without touching the breaker.
func (r *Registry) MarkHealthy(name string) {
	if svc, ok := r.services[name]; ok {
		r.update(svc, nil)
	}
}

// MarkUnhealthy extends name's failure streak without touching the breaker.
func (r *Registry) MarkUnhealthy(name, message string) {
	svc, ok := r.services[name]
	if !ok {
		return
	}

	r.logger.Warn(context.Background(), "service marked unhealthy",
		observe.F("service", svc.name),
		observe.F("message", message),
	)
	r.apply(svc, func(rec *record) {
		rec.consecutiveFailures++
		rec.message = message
	})
}

// update applies a call outcome to svc's record.
func (r *Registry) update(svc *service, err error) {
	r.apply(svc, func(rec *record) {
		if err == nil {
			rec.consecutiveFailures = 0
			rec.message = ""
			return
		}
		rec.consecutiveFailures++
		rec.message = err.Error()
	})
}

// apply mutates svc's record under the lock, then notifies listeners with
// the resulting status.
func (r *Registry) apply(svc *service, mutate func(*record)) {
	r.mu.Lock()
	mutate(&svc.record)
	svc.record.lastHealthCheck = r.now()
	rec := svc.record
	listeners := r.listenersLocked()
	r.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	status := newServiceStatus(svc.name, svc.breaker.State(), rec)
	for _, fn := range listeners {
		r.callListener(fn, svc.name, status)
	}
}

// ServiceStatus returns the current status of name.
func (r *Registry) ServiceStatus(name string) (ServiceStatus, error) {
	svc, ok := r.services[name]
	if !ok {
		return ServiceStatus{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	return r.status(svc), nil
}

// IsDegraded reports whether name has at least one consecutive failure,
// regardless of breaker state.
func (r *Registry) IsDegraded(name string) bool {
	svc, ok := r.services[name]
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return svc.record.consecutiveFailures > 0
}

// Stats returns every service status and the overall verdict: unhealthy if
// any circuit is open, else degraded if any service has failures, else
// healthy.
func (r *Registry) Stats() Stats {
	stats := Stats{
		Services:      make(map[string]ServiceStatus, len(r.order)),
		OverallHealth: StatusHealthy,
		LastUpdated:   r.now(),
	}

	for _, name := range r.order {
		st := r.status(r.services[name])
		stats.Services[name] = st

		switch {
		case st.CircuitState == resilience.StateOpen:
			stats.OverallHealth = StatusUnhealthy
		case st.ConsecutiveFailures > 0 && stats.OverallHealth == StatusHealthy:
			stats.OverallHealth = StatusDegraded
		}
	}
	return stats
}

// AddListener registers fn and returns a function that removes it. The
// remove function is safe to call more than once.
func (r *Registry) AddListener(fn Listener) (remove func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs[id] = fn
	r.ids = append(r.ids, id)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
			for i, v := range r.ids {
				if v == id {
					r.ids = append(r.ids[:i], r.ids[i+1:]...)
					break
				}
			}
		})
	}
}

// ResetAll closes every breaker with zeroed counters and clears every health
// record. Listeners are not notified.
func (r *Registry) ResetAll() {
	for _, name := range r.order {
		r.services[name].breaker.Reset()
	}

	r.mu.Lock()
	for _, svc := range r.services {
		svc.record = record{}
	}
	r.mu.Unlock()

	r.logger.Info(context.Background(), "all dependencies reset")
}

// status reads the breaker before taking r.mu: a lazy breaker transition
// runs OnStateChange, which may call back into the registry.
func (r *Registry) status(svc *service) ServiceStatus {
	state := svc.breaker.State()

	r.mu.Lock()
	rec := svc.record
	r.mu.Unlock()

	return newServiceStatus(svc.name, state, rec)
}

func newServiceStatus(name string, state resilience.State, rec record) ServiceStatus {
	return ServiceStatus{
		Name:                name,
		Available:           state != resilience.StateOpen,
		CircuitState:        state,
		ConsecutiveFailures: rec.consecutiveFailures,
		LastHealthCheck:     rec.lastHealthCheck,
		Message:             rec.message,
	}
}

func (r *Registry) listenersLocked() []Listener {
	if len(r.ids) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.subs[id])
	}
	return out
}

func (r *Registry) callListener(fn Listener, name string, status ServiceStatus) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(context.Background(), "health listener panicked",
				observe.F("service", name),
				observe.F("panic", fmt.Sprint(p)),
			)
		}
	}()
	fn(name, status)
}
