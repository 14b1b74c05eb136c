package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the value for a missing key.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader is a read-through front for a MemoryCache. Concurrent loads of the
// same key share one LoadFunc call. Errors are returned to every waiter and
// never cached.
type Loader[T any] struct {
	cache *MemoryCache[T]
	group singleflight.Group
}

// NewLoader creates a Loader over c.
func NewLoader[T any](c *MemoryCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Cache returns the underlying cache.
func (l *Loader[T]) Cache() *MemoryCache[T] {
	return l.cache
}

// Load returns the cached value for key, or calls fn and caches its result
// with the cache's default TTL.
func (l *Loader[T]) Load(ctx context.Context, key string, fn LoadFunc[T]) (T, error) {
	var zero T
	if err := ValidateKey(key); err != nil {
		return zero, fmt.Errorf("%w: %q", err, key)
	}

	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := l.cache.peek(key); ok {
			return v, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Forget drops key from the cache so the next Load calls fn again.
func (l *Loader[T]) Forget(key string) {
	l.group.Forget(key)
	l.cache.Delete(key)
}
