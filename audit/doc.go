// Package audit implements the audit log: every mutation,
// permission change, authentication event, export, and configuration
// change is recorded with actor, tool, action, resource, outcome,
// duration, request context, and effect counts, redacted of secrets
// before it ever reaches a Sink.
package audit
