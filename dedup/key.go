package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalKey builds a deterministic dedup key for a mutation call scoped
// to documentID and tool, combining them with idempotencyKey and any extra
// request-shaped parts (e.g. a transaction ID, or identifying fields pulled
// from the mutations themselves) the caller wants folded into the key.
// parts is canonicalized — map keys are sorted recursively — so the same
// logical request produces the same key regardless of map iteration order.
//
// Format: dedup:<documentID>:<tool>:<hash>, where hash is the first 16 hex
// characters of SHA-256(idempotencyKey + canonical JSON(parts)).
func CanonicalKey(documentID, tool, idempotencyKey string, parts map[string]any) string {
	canonical, err := canonicalize(parts)
	if err != nil {
		// parts came from already-validated call data; a marshal failure
		// here means a caller passed something JSON can't encode (a func,
		// a channel). Fall back to the idempotency key alone rather than
		// panicking on a dedup-key helper.
		canonical = []byte(idempotencyKey)
	}

	h := sha256.New()
	h.Write([]byte(idempotencyKey))
	h.Write(canonical)
	sum := h.Sum(nil)

	return fmt.Sprintf("dedup:%s:%s:%s", documentID, tool, hex.EncodeToString(sum[:8]))
}

// canonicalize produces a deterministic JSON representation of v: maps are
// re-encoded with sorted keys (recursively) so two equal maps built via
// different insertion orders hash identically.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, keyBytes...)
		out = append(out, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, valBytes...)
	}
	out = append(out, '}')
	return out, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, valBytes...)
	}
	out = append(out, ']')
	return out, nil
}
