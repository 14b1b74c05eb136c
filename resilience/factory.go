package resilience

import "time"

// Well-known dependency names.
const (
	ServiceDatabase = "database"
	ServiceRedis    = "redis"
	ServiceAI       = "ai-claude"
)

// DatabaseConfig returns the preset for the relational database:
// 5 failures per minute open it, 30s cool-down, 2 probes to close.
func DatabaseConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             ServiceDatabase,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     30 * time.Second,
		FailureWindow:    60 * time.Second,
	}
}

// AIConfig returns the preset for the AI/LLM API: 3 failures per two
// minutes open it, 60s cool-down, 2 probes to close.
func AIConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             ServiceAI,
		FailureThreshold: 3,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
		FailureWindow:    120 * time.Second,
	}
}

// RedisConfig returns the preset for the Redis-compatible store:
// 5 failures per 30s open it, 10s cool-down, 3 probes to close.
func RedisConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             ServiceRedis,
		FailureThreshold: 5,
		SuccessThreshold: 3,
		ResetTimeout:     10 * time.Second,
		FailureWindow:    30 * time.Second,
	}
}

// Preset returns the preset configuration for a well-known dependency name.
func Preset(name string) (CircuitBreakerConfig, bool) {
	switch name {
	case ServiceDatabase:
		return DatabaseConfig(), true
	case ServiceAI:
		return AIConfig(), true
	case ServiceRedis:
		return RedisConfig(), true
	default:
		return CircuitBreakerConfig{}, false
	}
}

// NewDatabaseCircuitBreaker creates a breaker tuned for the database.
func NewDatabaseCircuitBreaker(onStateChange StateChangeFunc) *CircuitBreaker {
	cfg := DatabaseConfig()
	cfg.OnStateChange = onStateChange
	return NewCircuitBreaker(cfg)
}

// NewAICircuitBreaker creates a breaker tuned for the AI/LLM API.
func NewAICircuitBreaker(onStateChange StateChangeFunc) *CircuitBreaker {
	cfg := AIConfig()
	cfg.OnStateChange = onStateChange
	return NewCircuitBreaker(cfg)
}

// NewRedisCircuitBreaker creates a breaker tuned for the Redis store.
func NewRedisCircuitBreaker(onStateChange StateChangeFunc) *CircuitBreaker {
	cfg := RedisConfig()
	cfg.OnStateChange = onStateChange
	return NewCircuitBreaker(cfg)
}
