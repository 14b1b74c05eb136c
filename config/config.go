// Package config loads depguard settings from a YAML file, .env files and
// DEPGUARD_* environment variables.
package config

import (
	"time"

	"github.com/thefiredev-cloud/depguard/cache"
	"github.com/thefiredev-cloud/depguard/health"
	"github.com/thefiredev-cloud/depguard/observe"
	"github.com/thefiredev-cloud/depguard/resilience"
)

// Config is the full configuration.
type Config struct {
	Observe  ObserveConfig              `mapstructure:"observe"`
	Services map[string]BreakerSettings `mapstructure:"services"`
	Caches   CachesConfig               `mapstructure:"caches"`
	Probe    ProbeConfig                `mapstructure:"probe"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Version     string        `mapstructure:"version"`
	Environment string        `mapstructure:"environment"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// TracingConfig configures the span exporter.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig configures the metrics reader.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// BreakerSettings tunes one dependency's circuit breaker. Zero fields fall
// back to the dependency's preset, or the breaker defaults for names without
// a preset.
type BreakerSettings struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	FailureWindow    time.Duration `mapstructure:"failure_window"`
}

// CacheSettings sizes one cache. A zero field keeps the cache's default; a
// negative TTL stores entries without expiry.
type CacheSettings struct {
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// CachesConfig sizes the pre-built caches.
type CachesConfig struct {
	Search     CacheSettings `mapstructure:"search"`
	AIResponse CacheSettings `mapstructure:"ai_response"`
	RateLimit  CacheSettings `mapstructure:"rate_limit"`
	General    CacheSettings `mapstructure:"general"`
}

// ProbeConfig configures out-of-band dependency probes.
type ProbeConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// ObserverConfig converts the telemetry section for observe.NewObserver.
func (c *Config) ObserverConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Environment: o.Environment,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// RegistryServices returns the dependency list for health.NewRegistry.
// Well-known dependencies come first in their usual order, then any other
// configured names in lexical order.
func (c *Config) RegistryServices() []health.ServiceConfig {
	if len(c.Services) == 0 {
		return health.DefaultServices()
	}

	out := make([]health.ServiceConfig, 0, len(c.Services))
	for _, name := range serviceNames(c.Services) {
		bc, _ := resilience.Preset(name)
		bc.Name = name
		c.Services[name].apply(&bc)
		out = append(out, health.ServiceConfig{Name: name, Breaker: bc})
	}
	return out
}

func (s BreakerSettings) apply(bc *resilience.CircuitBreakerConfig) {
	if s.FailureThreshold > 0 {
		bc.FailureThreshold = s.FailureThreshold
	}
	if s.SuccessThreshold > 0 {
		bc.SuccessThreshold = s.SuccessThreshold
	}
	if s.ResetTimeout > 0 {
		bc.ResetTimeout = s.ResetTimeout
	}
	if s.FailureWindow > 0 {
		bc.FailureWindow = s.FailureWindow
	}
}

// CacheConfig returns the pre-built cache sizes, falling back to
// cache.DefaultCachesConfig for zero fields.
func (c *Config) CacheConfig() cache.CachesConfig {
	cfg := cache.DefaultCachesConfig()
	c.Caches.Search.apply(&cfg.Search)
	c.Caches.AIResponse.apply(&cfg.AIResponse)
	c.Caches.RateLimit.apply(&cfg.RateLimit)
	c.Caches.General.apply(&cfg.General)
	return cfg
}

func (s CacheSettings) apply(cfg *cache.Config) {
	if s.MaxEntries > 0 {
		cfg.MaxEntries = s.MaxEntries
	}
	switch {
	case s.TTL < 0:
		cfg.DefaultTTL = 0
	case s.TTL > 0:
		cfg.DefaultTTL = s.TTL
	}
}

// ProberConfig converts the probe section for health.NewProber.
func (c *Config) ProberConfig() health.ProberConfig {
	return health.ProberConfig{
		Timeout:     c.Probe.Timeout,
		Concurrency: c.Probe.Concurrency,
	}
}
