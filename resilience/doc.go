// Package resilience provides the backoff-and-pacing primitives the rest of
// sheetcore builds its remote-call guards on top of.
//
// It does not implement circuit breaking or bulkheading itself — [breaker]
// owns the open/half-open/closed state machine for the remote spreadsheet
// API, and nothing in this tree needs request-concurrency isolation beyond
// what [quota] already enforces per user/document. resilience supplies the
// two primitives those packages actually compose: a retrying executor and a
// token-bucket limiter.
//
// # Patterns
//
//   - [Retry]: retries a failed operation with exponential, linear, or
//     constant backoff and optional jitter. toolcall.Pipeline runs each
//     remote call through Retry inside the [breaker.Registry], in the guard
//     order breaker -> retry -> client.
//
//   - [RateLimiter]: token-bucket limiting with burst allowance and an
//     optional wait-on-limit mode. [quota.Limiter] keeps one RateLimiter per
//     user and per document key, so a single heavy caller can't starve the
//     rest of a workspace's read/write budget.
//
// # Quick Start
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	    Strategy:     resilience.BackoffExponential,
//	})
//
//	err := retry.Execute(ctx, func(ctx context.Context) error {
//	    return callRemoteSheetsAPI(ctx)
//	})
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    Rate:  100,
//	    Burst: 10,
//	})
//	if !rl.Allow() {
//	    return resilience.ErrRateLimitExceeded
//	}
//
// # Thread Safety
//
// [Retry].Execute is stateless and safe for concurrent use. [RateLimiter]'s
// Allow, AllowN, Wait, and Execute are mutex-protected.
//
// # Error Handling
//
// [ErrRateLimitExceeded] is returned when a limiter has no tokens available
// and the caller declined to wait (RateLimiterConfig.WaitOnLimit is false).
// Retry does not define its own sentinel: it returns the last error the
// wrapped operation produced once attempts are exhausted, so callers check
// the underlying failure (e.g. with [toolerr.IsRetryable]) rather than a
// resilience-specific one.
package resilience
