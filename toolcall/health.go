package toolcall

import (
	"context"

	"github.com/sheetmcp/sheetcore/breaker"
	"github.com/sheetmcp/sheetcore/health"
)

// NewHealthAggregator builds a health.Aggregator with a checker that reports
// the remote endpoint's circuit-breaker state (closed is healthy, half-open
// is degraded since it is actively probing after a prior failure streak,
// open is unhealthy) plus a process memory checker so an operator polling
// one aggregator catches both "the remote is failing" and "this process is
// about to OOM" before either turns into a dropped tool call. Callers
// wanting deeper component checks (storage, downstream dependencies)
// register additional checkers on the returned Aggregator.
func (p *Pipeline) NewHealthAggregator(config ...health.AggregatorConfig) *health.Aggregator {
	agg := health.NewAggregator(config...)
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	if p.deps.Breakers == nil {
		return agg
	}
	agg.Register(p.cfg.Endpoint, health.NewCheckerFunc(p.cfg.Endpoint, func(ctx context.Context) health.Result {
		snap := p.deps.Breakers.State(p.cfg.Endpoint)
		switch snap.State {
		case breaker.Closed:
			return health.Healthy("circuit closed").WithDetails(map[string]any{
				"consecutiveFailures": snap.ConsecutiveFailures,
			})
		case breaker.HalfOpen:
			return health.Degraded("circuit half-open, probing after failures").WithDetails(map[string]any{
				"consecutiveSuccess": snap.ConsecutiveSuccess,
			})
		default: // breaker.Open
			return health.Unhealthy("circuit open", nil).WithDetails(map[string]any{
				"nextAttemptAt": snap.NextAttemptAt,
			})
		}
	}))
	return agg
}
