package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thefiredev-cloud/depguard/observe"
)

// ProberConfig configures a Prober.
type ProberConfig struct {
	// Timeout bounds each probe.
	// Default: 5 seconds
	Timeout time.Duration

	// Concurrency limits probes running at once. Zero means no limit.
	Concurrency int

	// Logger records probe outcomes.
	// Default: no-op logger
	Logger observe.Logger
}

// Prober runs out-of-band checks and applies their verdicts to a Registry
// with MarkHealthy and MarkUnhealthy. Probes never move breaker counters.
type Prober struct {
	config   ProberConfig
	registry *Registry

	mu       sync.RWMutex
	checkers []Checker
}

// NewProber creates a prober for reg.
func NewProber(reg *Registry, cfg ProberConfig) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Prober{config: cfg, registry: reg}
}

// Register adds a checker. Its Name must be a registered service.
func (p *Prober) Register(c Checker) error {
	if _, ok := p.registry.CircuitBreaker(c.Name()); !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, c.Name())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkers = append(p.checkers, c)
	return nil
}

// CheckerNames returns the names of all registered checkers.
func (p *Prober) CheckerNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.checkers))
	for i, c := range p.checkers {
		names[i] = c.Name()
	}
	return names
}

// ProbeAll runs every checker in parallel, applies each verdict to the
// registry and returns the results keyed by service name.
func (p *Prober) ProbeAll(ctx context.Context) map[string]Result {
	p.mu.RLock()
	checkers := append([]Checker(nil), p.checkers...)
	p.mu.RUnlock()

	results := make(map[string]Result, len(checkers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if p.config.Concurrency > 0 {
		g.SetLimit(p.config.Concurrency)
	}
	for _, c := range checkers {
		g.Go(func() error {
			res := p.probe(gctx, c)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Prober) probe(ctx context.Context, c Checker) Result {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	res := p.run(ctx, c)
	p.apply(ctx, c.Name(), res)
	return res
}

// run executes the checker, abandoning it when ctx expires.
func (p *Prober) run(ctx context.Context, c Checker) Result {
	start := time.Now()
	ch := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- Unhealthy(fmt.Sprintf("check panicked: %v", r), ErrCheckFailed)
			}
		}()
		ch <- c.Check(ctx)
	}()

	select {
	case res := <-ch:
		res.Duration = time.Since(start)
		if res.Timestamp.IsZero() {
			res.Timestamp = start
		}
		return res
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}

func (p *Prober) apply(ctx context.Context, name string, res Result) {
	if res.Status == StatusHealthy {
		p.registry.MarkHealthy(name)
		p.config.Logger.Debug(ctx, "probe passed",
			observe.F("service", name),
			observe.F("duration_ms", res.Duration.Milliseconds()),
		)
		return
	}

	msg := res.Message
	if msg == "" && res.Error != nil {
		msg = res.Error.Error()
	}
	p.registry.MarkUnhealthy(name, msg)
	p.config.Logger.Warn(ctx, "probe failed",
		observe.F("service", name),
		observe.F("status", res.Status.String()),
		observe.F("error", msg),
	)
}

// DefaultProbeInterval is used by Run when interval is not positive.
const DefaultProbeInterval = 30 * time.Second

// Run probes every interval until ctx is done.
func (p *Prober) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.ProbeAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
