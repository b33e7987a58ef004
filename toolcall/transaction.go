package toolcall

import (
	"context"
	"time"

	"github.com/sheetmcp/sheetcore/audit"
	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/toolerr"
	"github.com/sheetmcp/sheetcore/txn"
)

// BeginTransaction opens a transaction against doc, audited under actor.
// Subsequent mutating Calls carrying the returned txID enlist into it
// instead of dispatching immediately.
func (p *Pipeline) BeginTransaction(ctx context.Context, identity string, doc remote.DocumentHandle, opts txn.Options) (string, error) {
	if p.deps.Txns == nil {
		return "", toolerr.New(toolerr.InternalError, "transactions are not configured")
	}
	start := time.Now()
	txID, err := p.deps.Txns.Begin(ctx, doc, opts)
	p.auditTxnOp(ctx, identity, "transaction.begin", string(doc), txID, err, time.Since(start))
	return txID, err
}

// CommitTransaction commits txID: compiles and dispatches its queued
// mutations, rolling back automatically on failure per the transaction's
// AutoRollback option.
func (p *Pipeline) CommitTransaction(ctx context.Context, identity, txID string) (txn.CommitResult, error) {
	if p.deps.Txns == nil {
		return txn.CommitResult{}, toolerr.New(toolerr.InternalError, "transactions are not configured")
	}
	start := time.Now()
	res, err := p.deps.Txns.Commit(ctx, txID)
	p.auditTxnOp(ctx, identity, "transaction.commit", txID, txID, err, time.Since(start))
	return res, err
}

// RollbackTransaction explicitly restores txID's snapshot and marks it
// rolled back.
func (p *Pipeline) RollbackTransaction(ctx context.Context, identity, txID string) (txn.RollbackResult, error) {
	if p.deps.Txns == nil {
		return txn.RollbackResult{}, toolerr.New(toolerr.InternalError, "transactions are not configured")
	}
	start := time.Now()
	res, err := p.deps.Txns.Rollback(ctx, txID)
	p.auditTxnOp(ctx, identity, "transaction.rollback", txID, txID, err, time.Since(start))
	return res, err
}

func (p *Pipeline) auditTxnOp(ctx context.Context, actor, action, resource, txID string, err error, dur time.Duration) {
	if p.deps.Auditor == nil {
		return
	}
	outcome := "success"
	details := map[string]any{"txId": txID}
	if err != nil {
		outcome = "error"
		details["error"] = err.Error()
	}
	p.deps.Auditor.Emit(ctx, audit.Record{
		Actor:    actor,
		Tool:     "transaction",
		Action:   action,
		Resource: resource,
		Outcome:  outcome,
		Duration: dur,
		Details:  details,
	})
}
