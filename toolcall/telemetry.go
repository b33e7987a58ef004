package toolcall

import (
	"context"

	"github.com/sheetmcp/sheetcore/observe"
)

// withTelemetry wraps dispatch in Telemetry's tracing/metrics/logging
// middleware when one is configured. The Call is the ExecuteFunc input and
// the Result its output; Telemetry never inspects either beyond passing it
// through.
func (p *Pipeline) withTelemetry(ctx context.Context, call Call, dispatch func(context.Context, Call) (Result, error)) (Result, error) {
	if p.deps.Telemetry == nil {
		return dispatch(ctx, call)
	}

	meta := observe.ToolMeta{Namespace: call.Tool, Name: call.Action, DocumentID: string(call.DocumentID)}
	exec := p.deps.Telemetry.Wrap(func(ctx context.Context, _ observe.ToolMeta, input any) (any, error) {
		return dispatch(ctx, input.(Call))
	})

	out, err := exec(ctx, meta, call)
	if out == nil {
		return Result{}, err
	}
	return out.(Result), err
}
