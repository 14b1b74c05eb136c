package cache

import (
	"time"

	"github.com/thefiredev-cloud/depguard/observe"
)

// Names of the pre-built caches.
const (
	NameSearch     = "search"
	NameAIResponse = "ai-response"
	NameRateLimit  = "rate-limit"
	NameGeneral    = "general"
)

// StatsProvider is implemented by every MemoryCache regardless of value type.
type StatsProvider interface {
	Name() string
	Stats() Stats
}

// CachesConfig sizes the pre-built cache set.
type CachesConfig struct {
	Search     Config
	AIResponse Config
	RateLimit  Config
	General    Config

	// Logger is used by any cache whose own Logger is nil.
	Logger observe.Logger
}

// DefaultCachesConfig returns sizes and TTLs suited to each use case:
// search results churn within minutes, AI answers are expensive and kept
// for an hour, rate-limit windows are one minute.
func DefaultCachesConfig() CachesConfig {
	return CachesConfig{
		Search:     Config{Name: NameSearch, MaxEntries: 500, DefaultTTL: 5 * time.Minute},
		AIResponse: Config{Name: NameAIResponse, MaxEntries: 200, DefaultTTL: time.Hour},
		RateLimit:  Config{Name: NameRateLimit, MaxEntries: 10000, DefaultTTL: time.Minute},
		General:    Config{Name: NameGeneral, MaxEntries: 1000, DefaultTTL: 5 * time.Minute},
	}
}

// Caches is the process-wide cache set. Build it once at startup and share
// the handle.
type Caches struct {
	Search     *MemoryCache[any]
	AIResponse *MemoryCache[string]
	RateLimit  *MemoryCache[int]
	General    *MemoryCache[any]
}

// NewCaches builds the cache set from cfg.
func NewCaches(cfg CachesConfig) *Caches {
	withLogger := func(c Config) Config {
		if c.Logger == nil {
			c.Logger = cfg.Logger
		}
		return c
	}

	return &Caches{
		Search:     NewMemoryCache[any](withLogger(cfg.Search)),
		AIResponse: NewMemoryCache[string](withLogger(cfg.AIResponse)),
		RateLimit:  NewMemoryCache[int](withLogger(cfg.RateLimit)),
		General:    NewMemoryCache[any](withLogger(cfg.General)),
	}
}

// All returns the caches in a fixed order.
func (c *Caches) All() []StatsProvider {
	return []StatsProvider{c.Search, c.AIResponse, c.RateLimit, c.General}
}

// Stats returns a snapshot per cache name.
func (c *Caches) Stats() map[string]Stats {
	out := make(map[string]Stats, 4)
	for _, p := range c.All() {
		out[p.Name()] = p.Stats()
	}
	return out
}

// Prune removes expired entries from every cache and returns the total.
func (c *Caches) Prune() int {
	return c.Search.Prune() + c.AIResponse.Prune() + c.RateLimit.Prune() + c.General.Prune()
}

// ClearAll empties every cache. Stats are kept.
func (c *Caches) ClearAll() {
	c.Search.Clear()
	c.AIResponse.Clear()
	c.RateLimit.Clear()
	c.General.Clear()
}
