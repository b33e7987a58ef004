package breaker

import (
	"sync"
	"time"

	"github.com/sheetmcp/sheetcore/toolerr"
)

// State is a circuit's position in the closed/open/half-open lifecycle.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures one breaker instance.
type Config struct {
	FailureThreshold int           // consecutive failures before opening; default 5
	SuccessThreshold int           // consecutive half_open successes before closing; default 2
	OpenTimeout      time.Duration // time in open before probing; default 30s
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// circuit is one endpoint's breaker state.
type circuit struct {
	mu                  sync.Mutex
	cfg                 Config
	state               State
	consecutiveFailures int
	consecutiveSuccess  int
	openedAt            time.Time
	nextAttemptAt       time.Time
}

func newCircuit(cfg Config) *circuit {
	return &circuit{cfg: cfg.withDefaults(), state: Closed}
}

// currentStateLocked advances open -> half_open once nextAttemptAt passes.
// Callers must hold c.mu.
func (c *circuit) currentStateLocked() State {
	if c.state == Open && !time.Now().Before(c.nextAttemptAt) {
		c.state = HalfOpen
		c.consecutiveSuccess = 0
	}
	return c.state
}

// beforeCall returns an error if the circuit rejects the call outright.
func (c *circuit) beforeCall() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentStateLocked() == Open {
		return toolerr.New(toolerr.CircuitOpen, "circuit breaker open").WithNextAttempt(c.nextAttemptAt)
	}
	return nil
}

// afterCall records the outcome of a call that was allowed through.
// isFailure should reflect §4.2's retryable-category classification: only
// HTTP 429/5xx, network, and timeout failures count toward the threshold.
func (c *circuit) afterCall(isFailure bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.currentStateLocked() {
	case Closed:
		if isFailure {
			c.consecutiveFailures++
			c.consecutiveSuccess = 0
			if c.consecutiveFailures >= c.cfg.FailureThreshold {
				c.trip()
			}
		} else {
			c.consecutiveFailures = 0
		}
	case HalfOpen:
		if isFailure {
			c.trip()
		} else {
			c.consecutiveSuccess++
			if c.consecutiveSuccess >= c.cfg.SuccessThreshold {
				c.state = Closed
				c.consecutiveFailures = 0
				c.consecutiveSuccess = 0
			}
		}
	}
}

func (c *circuit) trip() {
	c.state = Open
	c.openedAt = time.Now()
	c.nextAttemptAt = c.openedAt.Add(c.cfg.OpenTimeout)
	c.consecutiveFailures = 0
	c.consecutiveSuccess = 0
}

func (c *circuit) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:               c.currentStateLocked(),
		ConsecutiveFailures: c.consecutiveFailures,
		ConsecutiveSuccess:  c.consecutiveSuccess,
		OpenedAt:            c.openedAt,
		NextAttemptAt:       c.nextAttemptAt,
	}
}

// Snapshot is a read-only view of one endpoint's breaker state.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	ConsecutiveSuccess  int
	OpenedAt            time.Time
	NextAttemptAt       time.Time
}

// Registry holds one circuit per remote endpoint key, created lazily.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	circuits map[string]*circuit
}

// NewRegistry constructs a Registry; cfg applies to every endpoint unless a
// future caller needs per-endpoint overrides.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, circuits: make(map[string]*circuit)}
}

func (r *Registry) circuitFor(endpoint string) *circuit {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circuits[endpoint]
	if !ok {
		c = newCircuit(r.cfg)
		r.circuits[endpoint] = c
	}
	return c
}

// IsFailure classifies an error for breaker-tripping purposes: only
// retryable categories count. Callers pass the *toolerr.Error
// their call produced (nil means success).
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	return toolerr.IsRetryable(err)
}

// Execute runs op through the named endpoint's breaker: rejects immediately
// with CIRCUIT_OPEN if open, otherwise runs op and records the outcome via
// IsFailure.
func (r *Registry) Execute(endpoint string, op func() error) error {
	c := r.circuitFor(endpoint)
	if err := c.beforeCall(); err != nil {
		return err
	}
	err := op()
	c.afterCall(IsFailure(err))
	return err
}

// State returns the current state of the named endpoint's breaker, in case
// callers want to report it without attempting a call.
func (r *Registry) State(endpoint string) Snapshot {
	return r.circuitFor(endpoint).snapshot()
}

// Reset forces the named endpoint's breaker back to closed.
func (r *Registry) Reset(endpoint string) {
	c := r.circuitFor(endpoint)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.consecutiveFailures = 0
	c.consecutiveSuccess = 0
}
