package prefetch

import (
	"context"

	"github.com/sheetmcp/sheetcore/rangeref"
)

// Fetcher issues a speculative read. It is usually merger.Merger.Submit,
// so a prefetch is coalesced with any real concurrent request for the
// same range rather than issuing a redundant API call.
type Fetcher func(ctx context.Context, batchKey string, r rangeref.A1Range) ([][]any, error)

// Warm fires every prediction against fetch in its own goroutine and
// discards the result and any error — prefetching must never block the
// caller or surface a failure up the real request path. A panicking
// Fetcher is recovered rather than crashing the caller's process.
func Warm(ctx context.Context, predictions []Prediction, fetch Fetcher) {
	for _, p := range predictions {
		p := p
		go func() {
			defer func() { _ = recover() }()
			_, _ = fetch(ctx, p.DocumentID, p.Range)
		}()
	}
}
