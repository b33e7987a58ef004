// Package dedup implements mutation deduplication: concurrent calls sharing
// a CanonicalKey join one in-flight result instead of re-dispatching the
// mutation, and a small bounded LRU caches terminal results for a short TTL
// to collapse bursts of client-side retries that arrive just after the
// in-flight call settles.
//
// In-flight coalescing is golang.org/x/sync/singleflight, the same
// thundering-herd pattern used elsewhere in this tree for concurrent
// identical lookups, applied here to identically-keyed mutation calls. The
// terminal-result cache is a TTL-evicting map wrapped with a fixed-size LRU
// key list, since TTL eviction alone has no bound on total entry count.
// CanonicalKey folds a call's document, tool, idempotency key, and any
// extra identifying fields into one deterministic key regardless of map
// iteration order, so two requests that are logically the same mutation
// always dedupe against each other.
package dedup
