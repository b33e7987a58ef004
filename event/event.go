package event

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sheetmcp/sheetcore/toolerr"
)

// Event is one entry in a stream. EventID has the form "streamId:seq" and
// is unique and strictly increasing within a stream.
type Event struct {
	EventID   string
	StreamID  string
	Seq       int64
	CreatedAt time.Time
	Payload   []byte
}

// Sink receives replayed events in order. A non-nil return stops replay
// early and is propagated to the caller of ReplayAfter.
type Sink func(Event) error

// Store is the interface both backends satisfy.
type Store interface {
	// Append assigns the next sequence number on streamID and returns the
	// resulting eventId.
	Append(ctx context.Context, streamID string, payload []byte) (string, error)

	// ReplayAfter replays, in order, every retained event on the stream
	// encoded in lastEventID, strictly after that event's sequence. It
	// returns the streamID so the caller doesn't need to have parsed it
	// itself. An unknown or already-evicted lastEventID yields an empty
	// replay rather than an error — the caller is expected to fall back
	// to a full resync when it gets nothing back. A lastEventID that is not
	// of the form "streamId:seq" fails with a NOT_FOUND error.
	ReplayAfter(ctx context.Context, lastEventID string, sink Sink) (streamID string, err error)

	// GC evicts events past their TTL (the per-stream count cap is applied
	// by Append). Called from a single shared timer, never per-entry.
	GC(ctx context.Context, now time.Time) (int, error)
}

// Config bounds retention. Defaults: 5000 events per stream, 5 minute TTL.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 5000
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	return c
}

func formatEventID(streamID string, seq int64) string {
	return fmt.Sprintf("%s:%d", streamID, seq)
}

// parseEventID splits "streamId:seq" and reports whether it parsed. A
// streamId itself may not contain a colon; the sequence is always the
// portion after the last one.
func parseEventID(eventID string) (streamID string, seq int64, ok bool) {
	idx := strings.LastIndex(eventID, ":")
	if idx < 0 {
		return "", 0, false
	}
	seq, err := strconv.ParseInt(eventID[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return eventID[:idx], seq, true
}

func errUnknownStream(streamID string) error {
	return toolerr.Newf(toolerr.NotFound, "stream %s not found", streamID)
}
