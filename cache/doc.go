// Package cache provides bounded in-memory caches for dependency results.
//
// MemoryCache is a generic LRU cache with optional per-entry TTL. Capacity is
// strict: inserting a new key into a full cache evicts exactly one least
// recently used entry. Expired entries are reclaimed lazily by Get or
// explicitly by Prune; neither path owns a goroutine.
//
// Around the cache the package offers:
//   - Caches, the process-wide set (search, AI responses, rate limits, general)
//   - DefaultKeyer, deterministic hashed keys for queries and prompts
//   - Loader, a read-through helper that collapses concurrent misses
//   - RegisterMetrics, OpenTelemetry instruments over cache stats
package cache
