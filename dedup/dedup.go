package dedup

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config configures a Deduplicator.
type Config struct {
	TTL        time.Duration // terminal-result cache TTL; default 2s
	MaxEntries int           // LRU bound on cached terminal results; default 256
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 2 * time.Second
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 256
	}
	return c
}

// Deduplicator coalesces concurrent identical mutations (via singleflight)
// and absorbs bursts of repeated retries that arrive just after the
// in-flight call settles (via a short-TTL bounded LRU), keyed on a
// document-scoped idempotency key built by CanonicalKey.
type Deduplicator struct {
	cfg   Config
	group singleflight.Group
	cache *boundedCache
}

// New constructs a Deduplicator.
func New(cfg Config) *Deduplicator {
	cfg = cfg.withDefaults()
	return &Deduplicator{
		cfg:   cfg,
		cache: newBoundedCache(cfg.MaxEntries),
	}
}

// Do executes factory under key: if a call with the same key is already in
// flight, the caller joins it instead of invoking factory again; if a
// terminal result for key is still within the TTL cache, it is returned
// without invoking factory at all. At most one underlying factory
// invocation is in flight per key at any time, and the in-flight map is
// empty once every joined caller has returned.
func (d *Deduplicator) Do(ctx context.Context, key string, factory func(context.Context) ([]byte, error)) ([]byte, error, bool) {
	if cached, ok := d.cache.Get(ctx, key); ok {
		return cached, nil, true
	}

	v, err, shared := d.group.Do(key, func() (any, error) {
		result, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		d.cache.Set(ctx, key, result, d.cfg.TTL)
		return result, nil
	})
	if err != nil {
		return nil, err, shared
	}
	return v.([]byte), nil, shared
}

// DoJSON is Do specialized for callers that want a typed result rather than
// raw bytes: factory returns any JSON-marshalable value, and out receives
// the unmarshaled terminal result (whether it came from the in-flight call,
// a joined call, or the TTL cache).
func DoJSON[T any](ctx context.Context, d *Deduplicator, key string, factory func(context.Context) (T, error)) (T, error, bool) {
	raw, err, shared := d.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	var out T
	if err != nil {
		return out, err, shared
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err, shared
	}
	return out, nil, shared
}

// boundedCache is a TTL-evicting cache (entries older than their TTL are
// dropped lazily on Get) bounded to a fixed entry count by a most-recently-
// used order list, so a caller can't grow the terminal-result cache without
// bound just by using distinct idempotency keys.
type boundedCache struct {
	mu       sync.Mutex
	entries  map[string]ttlEntry
	order    *list.List
	elements map[string]*list.Element
	max      int
}

type ttlEntry struct {
	value     []byte
	expiresAt time.Time
}

func newBoundedCache(max int) *boundedCache {
	return &boundedCache{
		entries:  make(map[string]ttlEntry),
		order:    list.New(),
		elements: make(map[string]*list.Element),
		max:      max,
	}
}

func (b *boundedCache) Get(_ context.Context, key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		b.evict(key)
		return nil, false
	}
	if el, ok := b.elements[key]; ok {
		b.order.MoveToFront(el)
	}
	return entry.value, true
}

func (b *boundedCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = ttlEntry{value: value, expiresAt: time.Now().Add(ttl)}
	if el, ok := b.elements[key]; ok {
		b.order.MoveToFront(el)
	} else {
		b.elements[key] = b.order.PushFront(key)
	}

	for b.order.Len() > b.max {
		oldest := b.order.Back()
		if oldest == nil {
			break
		}
		b.evict(oldest.Value.(string))
	}
}

// evict removes key from all three structures. Callers must hold b.mu.
func (b *boundedCache) evict(key string) {
	delete(b.entries, key)
	if el, ok := b.elements[key]; ok {
		b.order.Remove(el)
		delete(b.elements, key)
	}
}
