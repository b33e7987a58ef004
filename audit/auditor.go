package audit

import (
	"context"
	"time"
)

// Auditor emits Records to one or more Sinks. A Sink failure is logged to
// the fallback and does not fail the operation the caller is auditing —
// by the time Emit runs, the real operation has already completed.
type Auditor struct {
	sinks    []Sink
	fallback func(err error)
}

// New constructs an Auditor writing to every sink in order. fallback, if
// non-nil, receives any sink error (so at least one path observes a
// broken audit pipeline); it may be nil to silently drop sink errors.
func New(fallback func(err error), sinks ...Sink) *Auditor {
	return &Auditor{sinks: sinks, fallback: fallback}
}

// Emit stamps rec.Timestamp if unset and writes it to every configured
// sink, redacting rec.Details first.
func (a *Auditor) Emit(ctx context.Context, rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Details = redact(rec.Details)

	for _, sink := range a.sinks {
		if err := sink.Write(ctx, rec); err != nil && a.fallback != nil {
			a.fallback(err)
		}
	}
}

// Track wraps op, auditing its outcome and duration under action/resource
// for actor. It is the common call shape for mutation/permission/export
// paths: start the clock, run the operation, audit what happened.
func (a *Auditor) Track(ctx context.Context, base Record, op func(ctx context.Context) error) error {
	start := time.Now()
	err := op(ctx)

	rec := base
	rec.Duration = time.Since(start)
	if err != nil {
		rec.Outcome = "error"
		if rec.Details == nil {
			rec.Details = map[string]any{}
		}
		rec.Details["error"] = err.Error()
	} else if rec.Outcome == "" {
		rec.Outcome = "success"
	}
	a.Emit(ctx, rec)
	return err
}
