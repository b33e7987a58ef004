package audit

import "context"

// Sink persists one audited Record. Implementations must not block the
// caller indefinitely — a slow or unreachable sink should time out via
// ctx rather than stall the request that triggered the audit entry.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Logger records each Record as a structured log line. It is the default
// sink, suitable whenever audit records are shipped onward by the log
// pipeline rather than queried directly.
type Logger struct {
	log func(ctx context.Context, msg string, fields map[string]any)
}

// NewLogger wraps a log function (typically observe.Logger.Info adapted
// to take a field map) as a Sink.
func NewLogger(log func(ctx context.Context, msg string, fields map[string]any)) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Write(ctx context.Context, rec Record) error {
	l.log(ctx, "audit", map[string]any{
		"actor":      rec.Actor,
		"tool":       rec.Tool,
		"action":     rec.Action,
		"resource":   rec.Resource,
		"outcome":    rec.Outcome,
		"durationMs": rec.Duration.Milliseconds(),
		"requestId":  rec.RequestID,
		"ip":         rec.IP,
		"userAgent":  rec.UserAgent,
		"scopes":     rec.Scopes,
		"effect":     rec.Effect,
		"details":    redact(rec.Details),
	})
	return nil
}

var _ Sink = (*Logger)(nil)
