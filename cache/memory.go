package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thefiredev-cloud/depguard/observe"
)

// MemoryCache is a bounded in-memory LRU cache with per-entry expiry.
//
// Contract:
//   - Concurrency: safe for concurrent use; last writer wins.
//   - Capacity: Len() never exceeds MaxEntries. Inserting a new key at
//     capacity evicts exactly one least recently used entry first.
//   - Expiry: expired entries are removed lazily by Get and Prune.
//   - Callbacks: OnEvict runs after the lock is released.
//   - Stats: entry sizes are estimated on Set outside the lock, so Stats is
//     O(1) and never encodes values.
type MemoryCache[T any] struct {
	config Config
	logger observe.Logger
	now    func() time.Time

	mu        sync.Mutex
	items     map[string]*list.Element
	order     *list.List // front is most recently used
	hits      int64
	misses    int64
	evictions int64
	bytes     int64 // sum of entry sizes
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time // zero means no expiry
	size      int64
}

func (e *entry[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type eviction struct {
	key    string
	reason EvictReason
}

// NewMemoryCache creates a cache from cfg.
func NewMemoryCache[T any](cfg Config) *MemoryCache[T] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL < 0 {
		cfg.DefaultTTL = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	return &MemoryCache[T]{
		config: cfg,
		logger: cfg.Logger.With(observe.F("cache", cfg.Name)),
		now:    time.Now,
		items:  make(map[string]*list.Element, cfg.MaxEntries),
		order:  list.New(),
	}
}

// Name returns the configured cache name.
func (c *MemoryCache[T]) Name() string {
	return c.config.Name
}

// MaxEntries returns the capacity.
func (c *MemoryCache[T]) MaxEntries() int {
	return c.config.MaxEntries
}

// Set stores value under key with the default TTL.
func (c *MemoryCache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key. A ttl of zero or less stores the entry
// without expiry.
func (c *MemoryCache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	size := int64(len(key)) + estimateSize(value) + entryOverhead

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[T])
		c.bytes += size - e.size
		e.value = value
		e.expiresAt = expiresAt
		e.size = size
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	var evicted []eviction
	if c.order.Len() >= c.config.MaxEntries {
		if oldest := c.order.Back(); oldest != nil {
			e := c.removeLocked(oldest)
			c.evictions++
			evicted = append(evicted, eviction{key: e.key, reason: EvictLRU})
		}
	}

	c.items[key] = c.order.PushFront(&entry[T]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
		size:      size,
	})
	c.bytes += size
	c.mu.Unlock()

	c.notify(evicted)
}

// Get returns the value for key and marks it most recently used. Expired
// entries count as misses and are removed.
func (c *MemoryCache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	e := el.Value.(*entry[T])
	if e.expired(c.now()) {
		c.removeLocked(el)
		c.misses++
		c.mu.Unlock()
		c.notify([]eviction{{key: key, reason: EvictTTL}})
		return zero, false
	}

	c.order.MoveToFront(el)
	c.hits++
	value := e.value
	c.mu.Unlock()

	return value, true
}

// Has reports whether key holds a live entry. It does not touch stats or
// recency.
func (c *MemoryCache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	return ok && !el.Value.(*entry[T]).expired(c.now())
}

// peek returns a live value without touching stats or recency.
func (c *MemoryCache[T]) peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		if e := el.Value.(*entry[T]); !e.expired(c.now()) {
			return e.value, true
		}
	}
	var zero T
	return zero, false
}

// Delete removes key and reports whether it was present.
func (c *MemoryCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	return true
}

// Clear removes every entry. Stats are kept.
func (c *MemoryCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.config.MaxEntries)
	c.order.Init()
	c.bytes = 0
}

// Len returns the number of stored entries, including expired entries not
// yet reclaimed.
func (c *MemoryCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns live keys, most recently used first.
func (c *MemoryCache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[T])
		if !e.expired(now) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Prune removes all expired entries and returns how many were removed.
func (c *MemoryCache[T]) Prune() int {
	c.mu.Lock()
	now := c.now()
	var evicted []eviction
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if e := el.Value.(*entry[T]); e.expired(now) {
			c.removeLocked(el)
			evicted = append(evicted, eviction{key: e.key, reason: EvictTTL})
		}
		el = prev
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Stats returns a snapshot of the cache counters.
func (c *MemoryCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:             c.hits,
		Misses:           c.misses,
		Evictions:        c.evictions,
		Entries:          c.order.Len(),
		HitRate:          hitRate(c.hits, c.misses),
		MemoryUsageBytes: c.bytes,
	}
}

// ResetStats zeroes hits, misses and evictions. Entries are kept.
func (c *MemoryCache[T]) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

func (c *MemoryCache[T]) removeLocked(el *list.Element) *entry[T] {
	e := c.order.Remove(el).(*entry[T])
	delete(c.items, e.key)
	c.bytes -= e.size
	return e
}

func (c *MemoryCache[T]) notify(evicted []eviction) {
	if c.config.OnEvict == nil {
		return
	}
	for _, ev := range evicted {
		c.callOnEvict(ev)
	}
}

func (c *MemoryCache[T]) callOnEvict(ev eviction) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(context.Background(), "evict callback panicked",
				observe.F("key", ev.key),
				observe.F("reason", string(ev.reason)),
				observe.F("panic", fmt.Sprint(r)),
			)
		}
	}()
	c.config.OnEvict(ev.key, ev.reason)
}
