package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricHits        = "cache.hits"
	MetricMisses      = "cache.misses"
	MetricEvictions   = "cache.evictions"
	MetricEntries     = "cache.entries"
	MetricMemoryBytes = "cache.memory_bytes"
)

// RegisterMetrics exports the stats of caches as observable instruments,
// labelled with the cache name. Call Unregister on the result to stop.
func RegisterMetrics(meter metric.Meter, caches ...StatsProvider) (metric.Registration, error) {
	hits, err := meter.Int64ObservableCounter(MetricHits,
		metric.WithDescription("Cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: create hits counter: %w", err)
	}

	misses, err := meter.Int64ObservableCounter(MetricMisses,
		metric.WithDescription("Cache misses, including expired reads"),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: create misses counter: %w", err)
	}

	evictions, err := meter.Int64ObservableCounter(MetricEvictions,
		metric.WithDescription("LRU evictions"),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: create evictions counter: %w", err)
	}

	entries, err := meter.Int64ObservableGauge(MetricEntries,
		metric.WithDescription("Stored entries"),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: create entries gauge: %w", err)
	}

	memory, err := meter.Int64ObservableGauge(MetricMemoryBytes,
		metric.WithDescription("Estimated memory held by cache entries"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("cache: create memory gauge: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, c := range caches {
			s := c.Stats()
			attrs := metric.WithAttributes(attribute.String("cache", c.Name()))
			o.ObserveInt64(hits, s.Hits, attrs)
			o.ObserveInt64(misses, s.Misses, attrs)
			o.ObserveInt64(evictions, s.Evictions, attrs)
			o.ObserveInt64(entries, int64(s.Entries), attrs)
			o.ObserveInt64(memory, s.MemoryUsageBytes, attrs)
		}
		return nil
	}, hits, misses, evictions, entries, memory)
}
