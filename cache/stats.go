package cache

import "encoding/json"

// Stats is a snapshot of cache counters.
//
// Hits, Misses and Evictions are monotonic until ResetStats; they are not
// affected by Delete or Clear.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int

	// HitRate is Hits/(Hits+Misses), or 0 before the first Get.
	HitRate float64

	// MemoryUsageBytes is a rough estimate for dashboards, not an exact size.
	MemoryUsageBytes int64
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// entryOverhead approximates the list element, map slot and entry header
// held per stored item.
const entryOverhead = 96

// estimateSize approximates the memory held by one value.
func estimateSize(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(val))
	case []byte:
		return int64(len(val))
	case bool, int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	case int, int64, uint, uint64, float64, uintptr:
		return 8
	}

	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
