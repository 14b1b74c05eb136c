package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/thefiredev-cloud/depguard/cache"
	"github.com/thefiredev-cloud/depguard/observe"
	"github.com/thefiredev-cloud/depguard/resilience"
)

// DefaultEnvPrefix prefixes environment overrides, e.g.
// DEPGUARD_OBSERVE_LOGGING_LEVEL or DEPGUARD_SERVICES_AI_CLAUDE_FAILURE_THRESHOLD.
// Dots and dashes in keys become underscores.
const DefaultEnvPrefix = "DEPGUARD"

type options struct {
	name      string
	file      string
	paths     []string
	envPrefix string
	dotEnv    bool
	logger    observe.Logger
}

// Option configures Load.
type Option func(*options)

// WithFile reads exactly this config file instead of searching paths.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// WithPaths sets the directories searched for depguard.yaml and .env.
func WithPaths(paths ...string) Option {
	return func(o *options) { o.paths = paths }
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// WithoutDotEnv disables .env loading.
func WithoutDotEnv() Option {
	return func(o *options) { o.dotEnv = false }
}

// WithLogger reports which sources were loaded.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

func defaultOptions() *options {
	return &options{
		name:      "depguard",
		paths:     []string{".", "./config"},
		envPrefix: DefaultEnvPrefix,
		dotEnv:    true,
		logger:    observe.NopLogger(),
	}
}

// Load reads configuration in increasing priority: defaults, config file,
// .env files, environment variables. The result is validated.
func Load(opts ...Option) (*Config, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	ctx := context.Background()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if o.dotEnv {
		if err := loadDotEnv(o.paths); err != nil {
			return nil, err
		}
	}

	if o.file != "" {
		v.SetConfigFile(o.file)
	} else {
		v.SetConfigName(o.name)
		v.SetConfigType("yaml")
		for _, p := range o.paths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}
		o.logger.Info(ctx, "config file not found, using defaults and environment")
	} else {
		o.logger.Info(ctx, "loaded config file", observe.F("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads .env from each path. Missing files are skipped; existing
// environment variables are never overwritten.
func loadDotEnv(paths []string) error {
	for _, p := range paths {
		err := godotenv.Load(filepath.Join(p, ".env"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrReadConfig, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("observe.service_name", "depguard")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "none")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")

	// Registering every preset key lets environment variables override
	// individual fields.
	for _, name := range []string{resilience.ServiceDatabase, resilience.ServiceRedis, resilience.ServiceAI} {
		p, _ := resilience.Preset(name)
		key := "services." + name + "."
		v.SetDefault(key+"failure_threshold", p.FailureThreshold)
		v.SetDefault(key+"success_threshold", p.SuccessThreshold)
		v.SetDefault(key+"reset_timeout", p.ResetTimeout)
		v.SetDefault(key+"failure_window", p.FailureWindow)
	}

	caches := cache.DefaultCachesConfig()
	for key, c := range map[string]cache.Config{
		"search":      caches.Search,
		"ai_response": caches.AIResponse,
		"rate_limit":  caches.RateLimit,
		"general":     caches.General,
	} {
		v.SetDefault("caches."+key+".max_entries", c.MaxEntries)
		v.SetDefault("caches."+key+".ttl", c.DefaultTTL)
	}

	v.SetDefault("probe.interval", "30s")
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.concurrency", 0)
}

// serviceNames orders well-known dependencies first, then the rest sorted.
func serviceNames(services map[string]BreakerSettings) []string {
	known := []string{resilience.ServiceDatabase, resilience.ServiceRedis, resilience.ServiceAI}

	names := make([]string, 0, len(services))
	for _, name := range known {
		if _, ok := services[name]; ok {
			names = append(names, name)
		}
	}

	var extra []string
	for name := range services {
		if !slices.Contains(known, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(names, extra...)
}
