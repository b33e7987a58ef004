package toolcall

import (
	"context"
	"time"

	"github.com/sheetmcp/sheetcore/audit"
)

// emitAudit records the outcome of a dispatched call, redacting request
// params as the audit package's own redaction rules require. A broken
// audit sink never surfaces back to the caller of Handle (audit.Auditor
// already guarantees this); a nil Auditor skips the stage entirely.
func (p *Pipeline) emitAudit(ctx context.Context, call Call, res Result, err error, dur time.Duration) {
	if p.deps.Auditor == nil {
		return
	}

	actor := "anonymous"
	var scopes []string
	if call.Identity != nil {
		actor = call.Identity.Principal
		scopes = call.Identity.Scopes
	}

	outcome := "success"
	details := map[string]any{}
	if err != nil {
		outcome = "error"
		details["error"] = err.Error()
	}
	if res.Deduplicated {
		details["deduplicated"] = true
	}
	if res.Enlisted {
		details["enlisted"] = true
		details["txId"] = res.TxID
	}

	rec := audit.Record{
		Actor:     actor,
		Tool:      call.Tool,
		Action:    call.Action,
		Resource:  string(call.DocumentID),
		Outcome:   outcome,
		Duration:  dur,
		RequestID: call.RequestID,
		Scopes:    scopes,
		Effect:    effectOf(call),
		Details:   details,
	}
	p.deps.Auditor.Emit(ctx, rec)
}

func effectOf(call Call) audit.Effect {
	var e audit.Effect
	for _, m := range call.Mutations {
		if m.Range == nil {
			continue
		}
		e.Cells += m.Range.CellCount()
		e.Rows += m.Range.Rows()
		e.Columns += m.Range.Cols()
	}
	if call.Read != nil {
		e.Cells += call.Read.Range.CellCount()
		e.Rows += call.Read.Range.Rows()
		e.Columns += call.Read.Range.Cols()
	}
	return e
}
