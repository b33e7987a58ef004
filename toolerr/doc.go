// Package toolerr defines the error taxonomy returned to tool-call clients.
//
// Every error the pipeline surfaces — from input validation through RBAC,
// rate limiting, the circuit breaker, the remote API, and transaction
// commit — is normalized to an *Error carrying a Code, a Retryable flag,
// and an optional Resolution hint describing the action a client should
// take. Internal packages construct these with the New/Wrap helpers instead
// of returning bare errors, so the tool-call surface never has to guess
// whether a failure is safe to retry.
package toolerr
