package cache

import (
	"strconv"
	"testing"
)

func BenchmarkMemoryCache_Get(b *testing.B) {
	c := NewMemoryCache[int](Config{MaxEntries: 1000})
	for i := 0; i < 1000; i++ {
		c.Set(strconv.Itoa(i), i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(strconv.Itoa(i % 1000))
	}
}

// BenchmarkMemoryCache_SetEvict measures inserts into a full cache, where
// every Set evicts one entry.
func BenchmarkMemoryCache_SetEvict(b *testing.B) {
	c := NewMemoryCache[int](Config{MaxEntries: 1000})
	keys := make([]string, 10000)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(keys[i%len(keys)], i)
	}
}

func BenchmarkMemoryCache_Parallel(b *testing.B) {
	c := NewMemoryCache[int](Config{MaxEntries: 1000})

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := strconv.Itoa(i % 2000)
			if _, ok := c.Get(key); !ok {
				c.Set(key, i)
			}
			i++
		}
	})
}

func BenchmarkDefaultKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer()
	input := map[string]any{
		"query":  "pediatric seizure",
		"limit":  10,
		"county": "LA",
		"filters": map[string]any{
			"category": "medical",
			"age":      []any{0, 14},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key(NamespaceSearch, input)
	}
}
