package prefetch

import (
	"fmt"
	"sync"
	"time"

	"github.com/sheetmcp/sheetcore/rangeref"
)

// Access is one recorded read/write against a document.
type Access struct {
	DocumentID string
	SheetID    string
	Range      rangeref.A1Range
	Action     string
	Timestamp  time.Time
}

func (a Access) key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%d", a.DocumentID, a.SheetID, a.Action,
		a.Range.StartRow, a.Range.StartCol, a.Range.EndRow, a.Range.EndCol)
}

// Pattern is a repeated length-2 or length-3 access subsequence retained
// once it has been seen at least Config.Threshold times.
type Pattern struct {
	Prefix     []string
	Next       Access
	Frequency  int
	Confidence float64
	LastSeen   time.Time
}

// Config bounds the tracker.
type Config struct {
	WindowSize int           // default 1000
	Threshold  int           // default 2
	PatternTTL time.Duration // default 10 minutes (5min pattern-window * 2)
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = 1000
	}
	if c.Threshold <= 0 {
		c.Threshold = 2
	}
	if c.PatternTTL <= 0 {
		c.PatternTTL = 10 * time.Minute
	}
	return c
}

// Tracker records recent accesses per document and predicts future ones.
type Tracker struct {
	cfg Config

	mu       sync.Mutex
	window   []Access // bounded ring, oldest-first; truncated from the front once full
	patterns map[string]*Pattern
}

// New constructs an empty Tracker.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg.withDefaults(), patterns: make(map[string]*Pattern)}
}

// Record appends access to the sliding window and updates pattern
// statistics for the length-2 and length-3 subsequences it completes.
func (t *Tracker) Record(access Access) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window = append(t.window, access)
	if over := len(t.window) - t.cfg.WindowSize; over > 0 {
		t.window = t.window[over:]
	}

	t.observeSubsequence(2)
	t.observeSubsequence(3)
	t.evictStalePatterns(access.Timestamp)
}

// observeSubsequence registers (or reinforces) the pattern formed by the
// last n accesses in the window, if there are at least n.
func (t *Tracker) observeSubsequence(n int) {
	if len(t.window) < n {
		return
	}
	seq := t.window[len(t.window)-n:]

	prefix := make([]string, n-1)
	for i := 0; i < n-1; i++ {
		prefix[i] = seq[i].key()
	}
	next := seq[n-1]

	patKey := fmt.Sprintf("%d:%v->%s", n, prefix, next.key())
	p, ok := t.patterns[patKey]
	if !ok {
		p = &Pattern{Prefix: prefix, Next: next}
		t.patterns[patKey] = p
	}
	p.Frequency++
	p.LastSeen = next.Timestamp
	if p.Frequency >= t.cfg.Threshold {
		p.Confidence = confidenceFor(p.Frequency)
	}
}

func confidenceFor(frequency int) float64 {
	c := float64(frequency) / 10
	if c > 0.95 {
		return 0.95
	}
	return c
}

// evictStalePatterns drops patterns whose last reinforcement is older than
// the pattern TTL, measured against now (the timestamp of the access that
// just triggered the sweep — never a timer per pattern).
func (t *Tracker) evictStalePatterns(now time.Time) {
	for k, p := range t.patterns {
		if now.Sub(p.LastSeen) > t.cfg.PatternTTL {
			delete(t.patterns, k)
		}
	}
}
