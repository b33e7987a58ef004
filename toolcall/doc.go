// Package toolcall implements the execution pipeline sitting between the
// tool-call surface and the remote spreadsheet API: validate, RBAC check,
// dedupe, impact analysis, transaction enlist, batch compile, rate limit,
// circuit breaker, retry, remote dispatch, response transform, audit log,
// reply. It sees only the normalized {tool, action, params}
// triple — schema definitions for individual tool actions, wire framing,
// and capability negotiation are out of scope and handled upstream.
package toolcall
