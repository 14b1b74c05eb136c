// Package health tracks the health of the backend's dependencies.
//
// A Registry is built once at startup from a fixed list of services
// (database, redis and ai-claude by default). Each service owns a
// resilience.CircuitBreaker and a health record holding its consecutive
// failure streak. Callers route dependency calls through Registry.Execute;
// the registry decides the overall verdict:
//
//   - unhealthy when any circuit is open
//   - degraded when any service has consecutive failures
//   - healthy otherwise
//
// # Usage
//
//	reg, err := health.NewRegistry(health.RegistryConfig{Logger: logger})
//	if err != nil {
//	    return err
//	}
//
//	rows, err := health.Do(ctx, reg, resilience.ServiceDatabase, func(ctx context.Context) ([]Protocol, error) {
//	    return repo.Search(ctx, query)
//	})
//
// # Probes
//
// Out-of-band checks (pings, synthetic queries) run through a Prober, which
// applies results with MarkHealthy and MarkUnhealthy and leaves breaker
// counters alone.
//
// # HTTP Endpoints
//
//	health.RegisterHandlers(mux, reg) // /healthz, /readyz, /health, /health/<name>
package health
