package toolcall

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sheetmcp/sheetcore/audit"
	"github.com/sheetmcp/sheetcore/auth"
	"github.com/sheetmcp/sheetcore/batch"
	"github.com/sheetmcp/sheetcore/breaker"
	"github.com/sheetmcp/sheetcore/dedup"
	"github.com/sheetmcp/sheetcore/impact"
	"github.com/sheetmcp/sheetcore/merger"
	"github.com/sheetmcp/sheetcore/observe"
	"github.com/sheetmcp/sheetcore/prefetch"
	"github.com/sheetmcp/sheetcore/quota"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/resilience"
	"github.com/sheetmcp/sheetcore/toolerr"
	"github.com/sheetmcp/sheetcore/txn"
)

// Config controls pipeline-wide behavior not owned by any one component.
type Config struct {
	Endpoint       string        // breaker/circuit key for the remote API; default "remote-api"
	RequestTimeout time.Duration // deadline applied to quota waits and merged reads; default 30s
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = "remote-api"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Deps are the components Handle wires together. All fields are required
// except Dedup, Auditor, and Telemetry, which may be nil to opt out of
// that stage.
type Deps struct {
	Authz     auth.Authorizer
	Dedup     *dedup.Deduplicator
	Graphs    *impact.GraphCache
	Txns      *txn.Manager
	Quota     *quota.Limiter
	Breakers  *breaker.Registry
	Retry     *resilience.Retry
	Client    remote.Client
	Auditor   *audit.Auditor
	BatchCfg  batch.Config
	Telemetry *observe.Middleware // optional: traces, measures, and logs each dispatch
	Prefetch  *prefetch.Tracker   // optional: records reads and speculatively warms predicted ones
}

// Pipeline is the execution pipeline: tool-call -> validate ->
// RBAC -> dedupe -> impact -> transaction enlist -> batch compile ->
// rate-limit -> circuit-breaker -> retry -> remote -> response transform
// -> audit -> reply.
type Pipeline struct {
	cfg      Config
	deps     Deps
	merger   *merger.Merger
	seenDocs sync.Map // documentID (string) -> struct{}, for prefetch's freshOpen signal
}

// New constructs a Pipeline. It builds its own internal Merger over
// deps.Client, guarded by the same quota/breaker/retry stack as the
// mutation path, since reads may be coalesced before hitting the rate
// limiter.
func New(cfg Config, mergerCfg merger.Config, deps Deps) *Pipeline {
	p := &Pipeline{cfg: cfg.withDefaults(), deps: deps}
	p.merger = merger.New(mergerCfg, p.fetchRemote)
	return p
}

// Handle runs call through the full pipeline and returns its Result. When
// Deps.Telemetry is set, the dispatch itself is traced, measured, and
// logged per-tool before the audit stage runs.
func (p *Pipeline) Handle(ctx context.Context, call Call) (Result, error) {
	start := time.Now()
	res, err := p.withTelemetry(ctx, call, p.dispatch)
	p.emitAudit(ctx, call, res, err, time.Since(start))
	return res, err
}

func (p *Pipeline) dispatch(ctx context.Context, call Call) (Result, error) {
	if err := validate(call); err != nil {
		return Result{}, err
	}
	if err := p.authorize(ctx, call); err != nil {
		return Result{}, err
	}

	if call.Read != nil {
		return p.handleRead(ctx, call)
	}
	return p.handleMutate(ctx, call)
}

func (p *Pipeline) authorize(ctx context.Context, call Call) error {
	if p.deps.Authz == nil {
		return nil
	}
	req := &auth.AuthzRequest{
		Subject:      call.Identity,
		Resource:     "tool:" + call.Tool,
		Action:       call.Action,
		ResourceType: call.resourceType(),
		DocumentID:   string(call.DocumentID),
	}
	return p.deps.Authz.Authorize(ctx, req)
}

// handleRead submits the read through the merger, which coalesces it with
// other in-flight reads against the same batch key before any single read
// reaches the rate limiter. On success it records the access and warms any
// predicted follow-up reads in the background.
func (p *Pipeline) handleRead(ctx context.Context, call Call) (Result, error) {
	deadline := time.Now().Add(p.cfg.RequestTimeout)
	batchKey := string(call.DocumentID) + "|" + call.Read.Options.ValueRenderOption
	values, err := p.merger.Submit(ctx, batchKey, call.Read.Range, deadline)
	if err != nil {
		return Result{}, err
	}
	p.recordAndPrefetch(ctx, call)
	return Result{Values: values}, nil
}

// recordAndPrefetch feeds the completed read into the access tracker and
// fires any resulting predictions against the merger, so a predicted read
// coalesces with a real one for the same range instead of duplicating it.
func (p *Pipeline) recordAndPrefetch(ctx context.Context, call Call) {
	if p.deps.Prefetch == nil {
		return
	}
	access := prefetch.Access{
		DocumentID: string(call.DocumentID),
		SheetID:    call.Read.Range.Sheet,
		Range:      call.Read.Range,
		Action:     "read",
		Timestamp:  time.Now(),
	}
	_, freshOpen := p.seenDocs.LoadOrStore(access.DocumentID, struct{}{})
	freshOpen = !freshOpen

	p.deps.Prefetch.Record(access)
	predictions := p.deps.Prefetch.Predict(access, freshOpen)
	// Warm's goroutines must outlive this request, so they run detached
	// from its context rather than inheriting a cancellation/deadline
	// that fires the moment Handle returns.
	prefetch.Warm(context.Background(), predictions, func(ctx context.Context, doc string, r rangeref.A1Range) ([][]any, error) {
		deadline := time.Now().Add(p.cfg.RequestTimeout)
		return p.merger.Submit(ctx, doc+"|"+call.Read.Options.ValueRenderOption, r, deadline)
	})
}

// fetchRemote is the merger.Fetcher: it runs one (possibly merged) read
// through quota, circuit-breaker, and retry before reaching the client.
func (p *Pipeline) fetchRemote(ctx context.Context, batchKey string, r rangeref.A1Range) ([][]any, error) {
	doc, renderOption, _ := strings.Cut(batchKey, "|")

	if p.deps.Quota != nil {
		if _, err := p.deps.Quota.AcquireWait(ctx, quota.Key{DocumentID: doc}, 1, time.Now().Add(p.cfg.RequestTimeout)); err != nil {
			return nil, err
		}
	}

	var out [][]any
	op := func() error {
		res, err := p.deps.Client.ReadValues(ctx, remote.DocumentHandle(doc), r, remote.ReadOptions{ValueRenderOption: renderOption})
		if err != nil {
			return err
		}
		out = res.Values
		return nil
	}
	if err := p.runGuarded(ctx, op); err != nil {
		return nil, err
	}
	return out, nil
}

// handleMutate runs dedupe, impact analysis, transaction enlist (or batch
// compile + dispatch), in that order.
func (p *Pipeline) handleMutate(ctx context.Context, call Call) (Result, error) {
	if p.deps.Dedup != nil && call.IdempotencyKey != "" {
		key := dedup.CanonicalKey(string(call.DocumentID), call.Tool, call.IdempotencyKey, map[string]any{
			"transactionID": call.TransactionID,
		})
		out, err, shared := dedup.DoJSON(ctx, p.deps.Dedup, key, func(ctx context.Context) (dispatchOutcome, error) {
			res, err := p.mutateOnce(ctx, call)
			if err != nil {
				return dispatchOutcome{}, err
			}
			return dispatchOutcome{Replies: res.Replies, RevisionToken: res.RevisionToken, Enlisted: res.Enlisted, TxID: res.TxID}, nil
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Replies: out.Replies, RevisionToken: out.RevisionToken, Enlisted: out.Enlisted, TxID: out.TxID, Deduplicated: shared}, nil
	}
	return p.mutateOnce(ctx, call)
}

// dispatchOutcome is the JSON-marshalable subset of Result the
// deduplicator's terminal-result cache stores.
type dispatchOutcome struct {
	Replies       []remote.MutationReply
	RevisionToken string
	Enlisted      bool
	TxID          string
}

func (p *Pipeline) mutateOnce(ctx context.Context, call Call) (Result, error) {
	var analysis *impact.Analysis
	if needsImpact(call) {
		a, err := p.analyze(ctx, call)
		if err != nil {
			return Result{}, err
		}
		analysis = a
		if a.RequiresConfirmation && !call.AutoConfirm {
			return Result{Impact: analysis}, toolerr.New(toolerr.Conflict, "mutation requires confirmation").
				WithResolution("resubmit with AutoConfirm once the user has confirmed").
				WithDetails(map[string]any{"severity": string(a.Severity)})
		}
	}

	if call.TransactionID != "" {
		for _, m := range call.Mutations {
			if err := p.deps.Txns.Queue(ctx, call.TransactionID, m); err != nil {
				return Result{Impact: analysis}, err
			}
		}
		return Result{Impact: analysis, Enlisted: true, TxID: call.TransactionID}, nil
	}

	calls := batch.Compile(call.Mutations, p.deps.BatchCfg)

	if p.deps.Quota != nil {
		userID := ""
		if call.Identity != nil {
			userID = call.Identity.Principal
		}
		key := quota.Key{UserID: userID, Tool: call.Tool, DocumentID: string(call.DocumentID)}
		if _, err := p.deps.Quota.AcquireWait(ctx, key, len(calls), time.Now().Add(p.cfg.RequestTimeout)); err != nil {
			return Result{Impact: analysis}, err
		}
	}

	var dr batch.Result
	op := func() error {
		res, err := batch.Dispatch(ctx, p.deps.Client, call.DocumentID, calls, nil)
		dr = res
		return err
	}
	if err := p.runGuarded(ctx, op); err != nil {
		return Result{Impact: analysis, Replies: dr.Replies, RevisionToken: dr.RevisionToken}, err
	}

	return Result{Impact: analysis, Replies: dr.Replies, RevisionToken: dr.RevisionToken}, nil
}

// runGuarded runs op through the circuit breaker, which runs it through
// retry-with-backoff in turn: breaker -> retry -> remote.
func (p *Pipeline) runGuarded(ctx context.Context, op func() error) error {
	run := op
	if p.deps.Retry != nil {
		run = func() error { return p.deps.Retry.Execute(ctx, func(ctx context.Context) error { return op() }) }
	}
	if p.deps.Breakers != nil {
		return p.deps.Breakers.Execute(p.cfg.Endpoint, run)
	}
	return run()
}

func needsImpact(call Call) bool {
	if call.RequireImpact {
		return true
	}
	for _, m := range call.Mutations {
		if m.IsStructural() || m.IsRisky() {
			return true
		}
	}
	return false
}

// analyze runs the impact analyzer against the first mutation carrying a
// target range, which is the common case (the analyzer operates on one
// target range per proposed mutation).
func (p *Pipeline) analyze(ctx context.Context, call Call) (*impact.Analysis, error) {
	var target *rangeref.A1Range
	var kind = call.Mutations[0].Kind
	for _, m := range call.Mutations {
		if m.Range != nil {
			target = m.Range
			kind = m.Kind
			break
		}
	}
	if target == nil {
		return &impact.Analysis{CanProceed: true}, nil
	}

	graph, err := p.deps.Graphs.Get(ctx, call.DocumentID)
	if err != nil {
		return nil, err
	}
	metadata, err := p.deps.Client.GetMetadata(ctx, call.DocumentID, nil)
	if err != nil {
		return nil, err
	}
	a := impact.Analyze(graph, *target, metadata, kind)
	return &a, nil
}
