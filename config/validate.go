package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/thefiredev-cloud/depguard/observe"
)

// Validate checks every section. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Observe),
		validation.Field(&c.Services, validation.By(validateServiceNames)),
		validation.Field(&c.Caches),
		validation.Field(&c.Probe),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate implements validation.Validatable.
func (o ObserveConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.ServiceName, validation.Required),
		validation.Field(&o.Tracing),
		validation.Field(&o.Metrics),
		validation.Field(&o.Logging),
	)
}

// Validate implements validation.Validatable.
func (t TracingConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Exporter, validation.In(toAny(observe.ValidTracingExporters)...)),
		validation.Field(&t.SamplePct,
			validation.Min(observe.MinSamplePct),
			validation.Max(observe.MaxSamplePct),
		),
	)
}

// Validate implements validation.Validatable.
func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Exporter, validation.In(toAny(observe.ValidMetricsExporters)...)),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In(toAny(observe.ValidLogLevels)...)),
	)
}

// Validate implements validation.Validatable.
func (s BreakerSettings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FailureThreshold, validation.Min(0)),
		validation.Field(&s.SuccessThreshold, validation.Min(0)),
		validation.Field(&s.ResetTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.FailureWindow, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (c CachesConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Search),
		validation.Field(&c.AIResponse),
		validation.Field(&c.RateLimit),
		validation.Field(&c.General),
	)
}

// Validate implements validation.Validatable.
func (s CacheSettings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MaxEntries, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (p ProbeConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Interval, validation.Min(time.Duration(0))),
		validation.Field(&p.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&p.Concurrency, validation.Min(0)),
	)
}

func validateServiceNames(value interface{}) error {
	services, ok := value.(map[string]BreakerSettings)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a map of breaker settings")
	}
	for name := range services {
		if name == "" {
			return validation.NewError("validation_empty_service_name", "service names must not be empty")
		}
	}
	return nil
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
