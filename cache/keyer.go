package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Well-known key namespaces used by the pre-built caches.
const (
	NamespaceSearch    = "search"
	NamespaceAI        = "ai"
	NamespaceRateLimit = "ratelimit"
)

// Keyer derives cache keys from structured request data.
//
// Contract:
//   - Determinism: equal inputs produce equal keys regardless of map order.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace string, input any) (string, error)
}

// DefaultKeyer hashes canonical JSON with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns "<namespace>:<hash>", where hash is the first 16 hex characters
// of SHA-256 over the canonical JSON of input. Search queries and prompts are
// never stored verbatim in keys.
func (k *DefaultKeyer) Key(namespace string, input any) (string, error) {
	if strings.TrimSpace(namespace) == "" || strings.Contains(namespace, ":") {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidKey, namespace)
	}

	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalize input: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return namespace + ":" + hex.EncodeToString(sum[:8]), nil
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalObject(val)
	case []any:
		return canonicalArray(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalObject(m)
	default:
		return json.Marshal(v)
	}
}

func canonicalObject(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, value...)
	}
	return append(out, '}'), nil
}

func canonicalArray(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		value, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, value...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
