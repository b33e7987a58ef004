package config

import (
	"context"

	"github.com/sheetmcp/sheetcore/breaker"
	"github.com/sheetmcp/sheetcore/dedup"
	"github.com/sheetmcp/sheetcore/event"
	"github.com/sheetmcp/sheetcore/merger"
	"github.com/sheetmcp/sheetcore/quota"
	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/resilience"
	"github.com/sheetmcp/sheetcore/secret"
	"github.com/sheetmcp/sheetcore/session"
	"github.com/sheetmcp/sheetcore/snapshot"
	"github.com/sheetmcp/sheetcore/task"
	"github.com/sheetmcp/sheetcore/txn"
)

// BuildBreaker converts the circuit section to breaker.Config.
func (c Configuration) BuildBreaker() breaker.Config {
	return breaker.Config{
		FailureThreshold: c.Circuit.FailureThreshold,
		SuccessThreshold: c.Circuit.SuccessThreshold,
		OpenTimeout:      ms(c.Circuit.TimeoutMs),
	}
}

// BuildRetry converts the retry section to resilience.RetryConfig.
func (c Configuration) BuildRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: ms(c.Retry.BaseDelayMs),
		MaxDelay:     ms(c.Retry.MaxDelayMs),
		Jitter:       c.Retry.Jitter,
	}
}

// BuildQuotaBucket converts the rate section into a quota.BucketConfig,
// for callers that apply the same rate uniformly to user/document/
// endpoint buckets. Callers needing per-bucket tuning construct
// quota.Config directly instead.
func (c Configuration) BuildQuotaBucket() quota.BucketConfig {
	return quota.BucketConfig{Rate: c.Rate.RefillPerSecond, Burst: c.Rate.Burst}
}

// BuildMerger converts the merger section to merger.Config.
func (c Configuration) BuildMerger() merger.Config {
	return merger.Config{
		Window:       ms(c.Merger.WindowMs),
		MaxGroupSize: c.Merger.MaxGroupSize,
	}
}

// BuildDedup converts the dedup section to dedup.Config.
func (c Configuration) BuildDedup() dedup.Config {
	return dedup.Config{
		TTL:        ms(c.Dedup.TTLMs),
		MaxEntries: c.Dedup.MaxEntries,
	}
}

// BuildTxn converts the tx section to txn.Config.
func (c Configuration) BuildTxn() txn.Config {
	return txn.Config{
		MaxActive:       c.Tx.MaxConcurrent,
		MaxOps:          c.Tx.MaxOperations,
		DefaultDeadline: ms(c.Tx.TimeoutMs),
	}
}

// BuildSnapshot converts the snapshot section to snapshot.Config.
func (c Configuration) BuildSnapshot() snapshot.Config {
	return snapshot.Config{
		MaxFullSizeBytes: c.Snapshot.MaxFullSizeBytes,
		TTL:              ms(c.Snapshot.TTLMs),
	}
}

// BuildTask converts the session section to a task.Config.
func (c Configuration) BuildTask() task.Config {
	return task.Config{TTL: ms(c.Session.DefaultTTLMs)}
}

// BuildSession converts the session section to session.Config, using an
// in-memory event store factory sized from the events section. Callers
// wanting the Redis backend build session.Config directly with their own
// factory instead.
func (c Configuration) BuildSession() session.Config {
	eventCfg := c.BuildEvent()
	return session.Config{
		MaxPerUser: c.Session.MaxPerUser,
		TaskConfig: c.BuildTask(),
		EventStore: func() event.Store { return event.NewMemoryStore(eventCfg) },
	}
}

// BuildEvent converts the events section to event.Config.
func (c Configuration) BuildEvent() event.Config {
	return event.Config{
		MaxEntries: c.Events.MaxEntries,
		TTL:        ms(c.Events.TTLMs),
	}
}

// BuildRemoteHTTPClient resolves the remote section's APIKeyRef through
// resolver (env expansion, or a registered secret.Provider for
// "sheetref:" values) and returns an HTTPClientConfig ready for
// remote.NewHTTPClient. A nil resolver still expands "${VAR}"-style
// placeholders, per secret.Resolver's own nil-safe ResolveValue.
func (c Configuration) BuildRemoteHTTPClient(ctx context.Context, resolver *secret.Resolver) (remote.HTTPClientConfig, error) {
	apiKey, err := resolver.ResolveValue(ctx, c.Remote.APIKeyRef)
	if err != nil {
		return remote.HTTPClientConfig{}, err
	}
	return remote.HTTPClientConfig{
		BaseURL:   c.Remote.BaseURL,
		UserAgent: c.Remote.UserAgent,
		APIKey:    apiKey,
	}, nil
}

// ResolveAuditSinkURL resolves the audit section's SinkURL the same way,
// for callers whose audit sink address is itself a secret reference.
func (c Configuration) ResolveAuditSinkURL(ctx context.Context, resolver *secret.Resolver) (string, error) {
	return resolver.ResolveValue(ctx, c.Audit.SinkURL)
}
