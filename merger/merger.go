package merger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sheetmcp/sheetcore/rangeref"
)

// Fetcher performs the actual remote read of one (possibly merged) range.
// It returns a row-major grid covering exactly r.
type Fetcher func(ctx context.Context, batchKey string, r rangeref.A1Range) ([][]any, error)

// Config configures a Merger.
type Config struct {
	Window       time.Duration // coalescing window; default 50ms
	MaxGroupSize int           // max requests coalesced into one batch; default 64
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 50 * time.Millisecond
	}
	if c.MaxGroupSize <= 0 {
		c.MaxGroupSize = 64
	}
	return c
}

// Stats tracks the scenario §8.1 counters: mergedRequests (extra requests
// folded into a batch beyond the first) and apiCalls (remote calls issued).
type Stats struct {
	MergedRequests int64
	APICalls       int64
}

// Merger coalesces concurrent reads against the same (batchKey) — typically
// documentId + a render-options fingerprint — within Config.Window.
type Merger struct {
	cfg     Config
	fetch   Fetcher
	stats   Stats
	mu      sync.Mutex
	batches map[string]*batch
}

// New constructs a Merger that dispatches merged reads via fetch.
func New(cfg Config, fetch Fetcher) *Merger {
	return &Merger{cfg: cfg.withDefaults(), fetch: fetch, batches: make(map[string]*batch)}
}

type pendingRead struct {
	rng    rangeref.A1Range
	result chan<- readResult
}

type readResult struct {
	values [][]any
	err    error
}

type batch struct {
	key     string
	reads   []pendingRead
	fireAt  time.Time
	timer   *time.Timer
	fired   bool
}

// Submit enqueues a read for rng under batchKey, blocking until the batch
// fires (or the context is cancelled) and returning this caller's slice of
// the merged response.
func (m *Merger) Submit(ctx context.Context, batchKey string, rng rangeref.A1Range, deadline time.Time) ([][]any, error) {
	resultCh := make(chan readResult, 1)
	m.enqueue(batchKey, rng, resultCh, deadline)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.values, res.err
	}
}

func (m *Merger) enqueue(batchKey string, rng rangeref.A1Range, resultCh chan<- readResult, deadline time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchKey]
	now := time.Now()
	if !ok || b.fired {
		fireAt := now.Add(m.cfg.Window)
		if !deadline.IsZero() && deadline.Before(fireAt) {
			fireAt = deadline
		}
		b = &batch{key: batchKey, fireAt: fireAt}
		m.batches[batchKey] = b
		b.timer = time.AfterFunc(time.Until(fireAt), func() { m.fire(batchKey) })
	} else {
		atomic.AddInt64(&m.stats.MergedRequests, 1)
		if !deadline.IsZero() && deadline.Before(b.fireAt) {
			b.fireAt = deadline
			if b.timer != nil {
				b.timer.Reset(time.Until(deadline))
			}
		}
	}

	b.reads = append(b.reads, pendingRead{rng: rng, result: resultCh})
	if len(b.reads) >= m.cfg.MaxGroupSize && b.timer != nil {
		b.timer.Stop()
		go m.fire(batchKey)
	}
}

func (m *Merger) fire(batchKey string) {
	m.mu.Lock()
	b, ok := m.batches[batchKey]
	if !ok || b.fired {
		m.mu.Unlock()
		return
	}
	b.fired = true
	delete(m.batches, batchKey)
	reads := b.reads
	m.mu.Unlock()

	ranges := make([]rangeref.A1Range, len(reads))
	for i, r := range reads {
		ranges[i] = r.rng
	}
	boxes := rangeref.MergeAll(ranges)

	ctx := context.Background()
	boxValues := make([]readResult, len(boxes))
	for i, box := range boxes {
		atomic.AddInt64(&m.stats.APICalls, 1)
		values, err := m.fetch(ctx, batchKey, box)
		boxValues[i] = readResult{values: values, err: err}
	}

	for _, r := range reads {
		idx, box := findContainingBox(boxes, r.rng)
		if idx < 0 {
			r.result <- readResult{err: rangeref.ErrInvalidRange}
			continue
		}
		br := boxValues[idx]
		if br.err != nil {
			r.result <- readResult{err: br.err}
			continue
		}
		slice := sliceRange(br.values, box, r.rng)
		r.result <- readResult{values: slice}
	}
}

func findContainingBox(boxes []rangeref.A1Range, r rangeref.A1Range) (int, rangeref.A1Range) {
	for i, box := range boxes {
		if rangeref.Contains(box, r) {
			return i, box
		}
	}
	return -1, rangeref.A1Range{}
}

// sliceRange extracts the sub-grid of full (covering box) corresponding to
// target, by row/column offset from box's origin.
func sliceRange(full [][]any, box, target rangeref.A1Range) [][]any {
	rowOffset := target.StartRow - box.StartRow
	colOffset := target.StartCol - box.StartCol
	rows := target.Rows()
	cols := target.Cols()
	if rows == rangeref.Unbounded {
		rows = int64(len(full)) - rowOffset
	}

	out := make([][]any, 0, rows)
	for r := int64(0); r < rows; r++ {
		srcRow := rowOffset + r
		if srcRow < 0 || srcRow >= int64(len(full)) {
			out = append(out, []any{})
			continue
		}
		full_row := full[srcRow]
		rowCols := cols
		if rowCols == rangeref.Unbounded {
			rowCols = int64(len(full_row)) - colOffset
		}
		row := make([]any, 0, rowCols)
		for c := int64(0); c < rowCols; c++ {
			srcCol := colOffset + c
			if srcCol < 0 || srcCol >= int64(len(full_row)) {
				row = append(row, nil)
				continue
			}
			row = append(row, full_row[srcCol])
		}
		out = append(out, row)
	}
	return out
}

// Stats returns a snapshot of the merge/dispatch counters.
func (m *Merger) Stats() Stats {
	return Stats{
		MergedRequests: atomic.LoadInt64(&m.stats.MergedRequests),
		APICalls:       atomic.LoadInt64(&m.stats.APICalls),
	}
}
