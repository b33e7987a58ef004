package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sheetmcp/sheetcore/remote"
)

// Phase names a stage of batch execution, reported via ProgressSink.
type Phase string

const (
	PhaseCompile  Phase = "compile"
	PhaseSnapshot Phase = "snapshot"
	PhaseDispatch Phase = "dispatch"
	PhaseVerify   Phase = "verify"
)

// Progress is one update emitted during execution.
type Progress struct {
	Phase   Phase
	Current int
	Total   int
	Message string
}

// ProgressSink receives Progress updates. Implementations must not block
// significantly — callers typically forward to a channel or logger.
type ProgressSink func(Progress)

func noopSink(Progress) {}

// Result accumulates the outcome of dispatching one document's compiled calls.
type Result struct {
	Replies       []remote.MutationReply
	RevisionToken string
}

// Dispatch sends calls against doc serially, preserving ordering, stopping
// at the first call that errors since later
// calls in the sequence may depend on earlier ones having applied.
func Dispatch(ctx context.Context, client remote.Client, doc remote.DocumentHandle, calls []CompiledCall, sink ProgressSink) (Result, error) {
	if sink == nil {
		sink = noopSink
	}
	var result Result

	for i, call := range calls {
		sink(Progress{Phase: PhaseDispatch, Current: i + 1, Total: len(calls), Message: string(doc)})

		br, err := client.ApplyBatch(ctx, doc, call.Mutations)
		result.Replies = append(result.Replies, br.Replies...)
		if br.RevisionToken != "" {
			result.RevisionToken = br.RevisionToken
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// DispatchMany runs Dispatch for each document concurrently (in parallel
// across documents), aggregating progress updates across all of them onto
// one sink.
func DispatchMany(ctx context.Context, client remote.Client, byDoc map[remote.DocumentHandle][]CompiledCall, sink ProgressSink) (map[remote.DocumentHandle]Result, error) {
	if sink == nil {
		sink = noopSink
	}

	total := 0
	for _, calls := range byDoc {
		total += len(calls)
	}
	var done int64

	results := make(map[remote.DocumentHandle]Result, len(byDoc))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for doc, calls := range byDoc {
		doc, calls := doc, calls
		g.Go(func() error {
			wrapped := func(p Progress) {
				if p.Phase == PhaseDispatch {
					n := atomic.AddInt64(&done, 1)
					p.Current = int(n)
					p.Total = total
				}
				sink(p)
			}
			res, err := Dispatch(gctx, client, doc, calls, wrapped)
			mu.Lock()
			results[doc] = res
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	return results, err
}
