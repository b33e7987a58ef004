// Package quota implements the keyed rate limiter: per-user,
// per-document, and per-endpoint token buckets composed so that acquiring a
// token for one key never blocks acquisition for an unrelated key.
//
// Per-user and per-document buckets reuse resilience.RateLimiter, one
// instance per observed key, registered lazily and protected by a
// concurrent map (sync.Map) rather than one lock shared across all keys.
// The per-endpoint global bucket — sustained, cluster-wide budget for the
// remote API as a whole — uses golang.org/x/time/rate directly, since a
// single shared limiter has no need for resilience's per-key registry
// machinery.
package quota
