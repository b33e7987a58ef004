package event

import (
	"context"
	"sync"
	"time"
)

type stream struct {
	mu       sync.Mutex
	events   []Event // append-only within retention; oldest-first
	nextSeq  int64
	lastSeen time.Time // set at creation and bumped on Append, drives idle TTL
}

// MemoryStore is an in-process Store, suitable for single-node
// deployments. Each stream is independently locked so a burst on one
// stream never blocks reads/writes on another.
type MemoryStore struct {
	cfg Config

	mu      sync.Mutex
	streams map[string]*stream
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{cfg: cfg.withDefaults(), streams: make(map[string]*stream)}
}

func (m *MemoryStore) getOrCreate(streamID string) *stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[streamID]
	if !ok {
		s = &stream{lastSeen: time.Now()}
		m.streams[streamID] = s
	}
	return s
}

func (m *MemoryStore) Append(ctx context.Context, streamID string, payload []byte) (string, error) {
	s := m.getOrCreate(streamID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	seq := s.nextSeq
	now := time.Now()
	s.lastSeen = now
	s.events = append(s.events, Event{
		EventID:   formatEventID(streamID, seq),
		StreamID:  streamID,
		Seq:       seq,
		CreatedAt: now,
		Payload:   payload,
	})

	if over := len(s.events) - m.cfg.MaxEntries; over > 0 {
		s.events = s.events[over:]
	}

	return formatEventID(streamID, seq), nil
}

func (m *MemoryStore) ReplayAfter(ctx context.Context, lastEventID string, sink Sink) (string, error) {
	streamID, seq, ok := parseEventID(lastEventID)
	if !ok {
		return "", errUnknownStream(lastEventID)
	}

	m.mu.Lock()
	s, exists := m.streams[streamID]
	m.mu.Unlock()
	if !exists {
		return streamID, nil
	}

	s.mu.Lock()
	toReplay := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if e.Seq > seq {
			toReplay = append(toReplay, e)
		}
	}
	s.mu.Unlock()

	for _, e := range toReplay {
		if err := sink(e); err != nil {
			return streamID, err
		}
	}
	return streamID, nil
}

// GC evicts events past TTL (measured from CreatedAt) across every stream,
// and drops streams left with no retained events whose last Append is also
// older than TTL. One call sweeps
// everything — callers drive it from a single shared timer via RunGC.
func (m *MemoryStore) GC(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	removed := 0
	for _, id := range ids {
		m.mu.Lock()
		s := m.streams[id]
		m.mu.Unlock()
		if s == nil {
			continue
		}

		s.mu.Lock()
		kept := s.events[:0:0]
		for _, e := range s.events {
			if now.Sub(e.CreatedAt) > m.cfg.TTL {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		s.events = kept
		empty := len(s.events) == 0 && now.Sub(s.lastSeen) > m.cfg.TTL
		s.mu.Unlock()

		if empty {
			m.mu.Lock()
			delete(m.streams, id)
			m.mu.Unlock()
		}
	}
	return removed, nil
}

// RunGC runs GC on interval until stop is closed.
func (m *MemoryStore) RunGC(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			_, _ = m.GC(context.Background(), now)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
