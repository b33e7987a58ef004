// Package remote defines the abstraction the execution pipeline uses to
// talk to the remote spreadsheet service: an interface (Client) so the
// pipeline never depends on a concrete transport, plus an HTTP
// implementation and the error classification that maps HTTP status codes
// and service-level reasons onto the toolerr taxonomy.
//
// The pipeline consumes Client through rangeref/mutation types; Client
// itself is unaware of rate limiting, circuit breaking, retry, or
// deduplication — those compose around it in toolcall.Pipeline: a
// quota.Limiter acquire first, then runGuarded's breaker.Registry and
// resilience.Retry in turn.
package remote
