package cache

import (
	"errors"
	"strings"
	"time"

	"github.com/thefiredev-cloud/depguard/observe"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// EvictReason describes why an entry left the cache.
type EvictReason string

const (
	// EvictLRU means the entry was the least recently used when a new key
	// was inserted at capacity.
	EvictLRU EvictReason = "lru"

	// EvictTTL means the entry was found expired.
	EvictTTL EvictReason = "ttl"
)

// EvictFunc is called after an entry has been removed by eviction.
type EvictFunc func(key string, reason EvictReason)

// Config configures a MemoryCache.
type Config struct {
	// Name identifies the cache in logs and metrics.
	Name string

	// MaxEntries bounds the number of stored entries.
	// Default: 1000
	MaxEntries int

	// DefaultTTL is applied by Set. Zero means entries never expire.
	DefaultTTL time.Duration

	// OnEvict is called for LRU and TTL evictions. Delete and Clear do not
	// trigger it.
	OnEvict EvictFunc

	// Logger reports OnEvict panics.
	// Default: no-op logger
	Logger observe.Logger
}

// DefaultMaxEntries is used when Config.MaxEntries is not positive.
const DefaultMaxEntries = 1000

// ValidateKey checks if a key is usable as a cache key.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
