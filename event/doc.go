// Package event implements bounded, replayable event streams: each stream
// assigns strictly monotonic per-stream sequence
// numbers, events are ordered and replayable from any prior eventId until
// eviction, and eviction (by count and by TTL) runs behind a single shared
// sweep per store rather than one timer per event. Two backends satisfy
// the same Store interface: an in-process implementation for single-node
// deployments, and a Redis-backed one (sorted sets keyed by sequence) for
// multi-node deployments that must share stream state across instances.
package event
