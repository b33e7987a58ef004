package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sheetmcp/sheetcore/resilience"
	"github.com/sheetmcp/sheetcore/toolerr"
)

// Key identifies a rate-limit bucket: the triple {userId, tool, documentId}.
// Any field may be empty when a caller wants a
// coarser-grained bucket (e.g. per-user only).
type Key struct {
	UserID     string
	Tool       string
	DocumentID string
}

// BucketConfig configures one keyed bucket class (sustained per-user, burst
// per-document, ...).
type BucketConfig struct {
	Rate  float64 // tokens per second
	Burst int
}

// Grant is the result of a successful Acquire.
type Grant struct{}

// Limiter admits or delays outbound calls. It holds three
// bucket classes — per-user, per-document, and a single global
// per-endpoint bucket — and a call must pass all three configured classes
// to be admitted.
type Limiter struct {
	userBuckets sync.Map // string -> *resilience.RateLimiter
	docBuckets  sync.Map // string -> *resilience.RateLimiter

	userCfg BucketConfig
	docCfg  BucketConfig

	endpoint *rate.Limiter
}

// Config configures a Limiter's three bucket classes.
type Config struct {
	PerUser     BucketConfig
	PerDocument BucketConfig
	PerEndpoint BucketConfig // global sustained budget for the remote API
}

// DefaultConfig returns this module's documented defaults.
func DefaultConfig() Config {
	return Config{
		PerUser:     BucketConfig{Rate: 10, Burst: 20},
		PerDocument: BucketConfig{Rate: 20, Burst: 40},
		PerEndpoint: BucketConfig{Rate: 100, Burst: 200},
	}
}

// NewLimiter constructs a Limiter from cfg, applying DefaultConfig values
// for any zero-valued bucket class.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.PerUser.Rate <= 0 {
		cfg.PerUser = def.PerUser
	}
	if cfg.PerDocument.Rate <= 0 {
		cfg.PerDocument = def.PerDocument
	}
	if cfg.PerEndpoint.Rate <= 0 {
		cfg.PerEndpoint = def.PerEndpoint
	}

	return &Limiter{
		userCfg:  cfg.PerUser,
		docCfg:   cfg.PerDocument,
		endpoint: rate.NewLimiter(rate.Limit(cfg.PerEndpoint.Rate), cfg.PerEndpoint.Burst),
	}
}

// Acquire admits cost tokens against key's user and document buckets and
// the shared endpoint bucket without waiting. It returns a Grant on
// success or a *toolerr.Error with Code RateLimit and RetryAfter populated
// on denial. Acquires on different keys never block one another: each
// bucket is looked up (and lazily created) independently.
func (l *Limiter) Acquire(ctx context.Context, key Key, cost int) (Grant, error) {
	if cost <= 0 {
		cost = 1
	}

	if key.UserID != "" {
		b := l.bucketFor(&l.userBuckets, "u:"+key.UserID, l.userCfg)
		if !b.AllowN(cost) {
			return Grant{}, deniedError(l.userCfg, cost)
		}
	}
	if key.DocumentID != "" {
		b := l.bucketFor(&l.docBuckets, "d:"+key.DocumentID, l.docCfg)
		if !b.AllowN(cost) {
			return Grant{}, deniedError(l.docCfg, cost)
		}
	}
	if !l.endpoint.AllowN(time.Now(), cost) {
		reserve := l.endpoint.ReserveN(time.Now(), cost)
		var retryAfter time.Duration
		if reserve.OK() {
			retryAfter = reserve.Delay()
		}
		reserve.Cancel()
		return Grant{}, toolerr.New(toolerr.RateLimit, "endpoint-wide rate limit exceeded").
			WithRetryAfter(retryAfter)
	}
	return Grant{}, nil
}

// AcquireWait blocks (honoring ctx and deadline) until cost tokens are
// available on every applicable bucket, or returns a retryable RateLimit
// error once the deadline passes.
func (l *Limiter) AcquireWait(ctx context.Context, key Key, cost int, deadline time.Time) (Grant, error) {
	for {
		grant, err := l.Acquire(ctx, key, cost)
		if err == nil {
			return grant, nil
		}

		var te *toolerr.Error
		if !errors.As(err, &te) || te.Code != toolerr.RateLimit {
			return Grant{}, err
		}

		wait := te.RetryAfter
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Grant{}, err
		}
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Grant{}, toolerr.Wrap(toolerr.Cancelled, ctx.Err(), "acquire cancelled")
		case <-timer.C:
		}
	}
}

func (l *Limiter) bucketFor(m *sync.Map, key string, cfg BucketConfig) *resilience.RateLimiter {
	if v, ok := m.Load(key); ok {
		return v.(*resilience.RateLimiter)
	}
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: cfg.Rate, Burst: cfg.Burst})
	actual, _ := m.LoadOrStore(key, rl)
	return actual.(*resilience.RateLimiter)
}

func deniedError(cfg BucketConfig, cost int) error {
	retryAfter := time.Duration(float64(cost)/cfg.Rate*1000) * time.Millisecond
	return toolerr.New(toolerr.RateLimit, "rate limit exceeded").WithRetryAfter(retryAfter)
}

