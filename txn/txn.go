package txn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheetmcp/sheetcore/batch"
	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/snapshot"
	"github.com/sheetmcp/sheetcore/toolerr"
)

// State is a transaction's position in its state machine.
type State string

const (
	Pending    State = "pending"
	Queued     State = "queued"
	Executing  State = "executing"
	Committed  State = "committed"
	RolledBack State = "rolled_back"
	Failed     State = "failed"
)

func (s State) terminal() bool {
	return s == Committed || s == RolledBack || s == Failed
}

// Isolation is the advisory isolation level requested for a transaction.
type Isolation string

const (
	ReadUncommitted Isolation = "read_uncommitted"
	ReadCommitted   Isolation = "read_committed"
	Serializable    Isolation = "serializable"
)

// Options configures a transaction at begin time.
type Options struct {
	Isolation    Isolation
	AutoSnapshot bool
	AutoRollback bool
}

// Config controls the manager's resource limits.
type Config struct {
	MaxActive       int           // global cap on active (non-terminal) transactions; default 10
	MaxOps          int           // max queued mutations per transaction; default 100
	DefaultDeadline time.Duration // absolute transaction deadline; default 5min
}

func (c Config) withDefaults() Config {
	if c.MaxActive <= 0 {
		c.MaxActive = 10
	}
	if c.MaxOps <= 0 {
		c.MaxOps = 100
	}
	if c.DefaultDeadline <= 0 {
		c.DefaultDeadline = 5 * time.Minute
	}
	return c
}

// Record is a read-only snapshot of a transaction's state.
type Record struct {
	TxID         string
	DocumentID   string
	State        State
	QueuedOps    int
	SnapshotID   string
	Isolation    Isolation
	AutoSnapshot bool
	AutoRollback bool
	CreatedAt    time.Time
	Deadline     time.Time
}

type transaction struct {
	mu         sync.Mutex
	txID       string
	doc        remote.DocumentHandle
	state      State
	queuedOps  []mutation.Mutation
	snapshotID string
	opts       Options
	createdAt  time.Time
	deadline   time.Time
	baseline   string // revision token captured at begin, for read_committed validation
}

func (t *transaction) record() Record {
	return Record{
		TxID:         t.txID,
		DocumentID:   string(t.doc),
		State:        t.state,
		QueuedOps:    len(t.queuedOps),
		SnapshotID:   t.snapshotID,
		Isolation:    t.opts.Isolation,
		AutoSnapshot: t.opts.AutoSnapshot,
		AutoRollback: t.opts.AutoRollback,
		CreatedAt:    t.createdAt,
		Deadline:     t.deadline,
	}
}

// Manager orchestrates the transaction lifecycle, handing compiled
// mutations to the batch compiler/dispatcher and snapshots to the
// snapshot store.
type Manager struct {
	cfg       Config
	client    remote.Client
	snapshots *snapshot.Store

	mu         sync.Mutex
	txs        map[string]*transaction
	activeCnt  int
	docMutexes map[remote.DocumentHandle]*sync.Mutex
}

// New constructs a Manager.
func New(cfg Config, client remote.Client, snapshots *snapshot.Store) *Manager {
	return &Manager{
		cfg:        cfg.withDefaults(),
		client:     client,
		snapshots:  snapshots,
		txs:        make(map[string]*transaction),
		docMutexes: make(map[remote.DocumentHandle]*sync.Mutex),
	}
}

// Begin creates a transaction in pending. Exceeding the
// global active-transaction cap fails with a retryable error. For
// read_committed/serializable isolation, the document's current revision
// token is captured now as the baseline Commit later validates against.
func (m *Manager) Begin(ctx context.Context, doc remote.DocumentHandle, opts Options) (string, error) {
	m.mu.Lock()
	if m.activeCnt >= m.cfg.MaxActive {
		m.mu.Unlock()
		return "", toolerr.New(toolerr.QuotaExceeded, "too many active transactions").
			WithResolution("retry once an existing transaction completes")
	}
	m.mu.Unlock()

	var baseline string
	if opts.Isolation == ReadCommitted || opts.Isolation == Serializable {
		md, err := m.client.GetMetadata(ctx, doc, nil)
		if err != nil {
			return "", err
		}
		baseline = md.RevisionToken
	}

	now := time.Now()
	t := &transaction{
		txID:      uuid.NewString(),
		doc:       doc,
		state:     Pending,
		opts:      opts,
		createdAt: now,
		deadline:  now.Add(m.cfg.DefaultDeadline),
		baseline:  baseline,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeCnt >= m.cfg.MaxActive {
		return "", toolerr.New(toolerr.QuotaExceeded, "too many active transactions").
			WithResolution("retry once an existing transaction completes")
	}
	m.txs[t.txID] = t
	m.activeCnt++
	return t.txID, nil
}

func (m *Manager) get(txID string) (*transaction, error) {
	m.mu.Lock()
	t, ok := m.txs[txID]
	m.mu.Unlock()
	if !ok {
		return nil, toolerr.Newf(toolerr.NotFound, "transaction %q not found", txID)
	}
	return t, nil
}

// Queue appends op to the transaction's operation list. Fails if the
// transaction is not in pending/queued, or at MaxOps. If AutoSnapshot is
// set and this is the first risky mutation queued, a Snapshot is created
// and held now rather than at Begin, so transactions that never queue a
// risky mutation pay no snapshot cost before Commit.
func (m *Manager) Queue(ctx context.Context, txID string, op mutation.Mutation) error {
	t, err := m.get(txID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Pending && t.state != Queued {
		return toolerr.Newf(toolerr.Conflict, "transaction %q is %s, cannot queue", txID, t.state)
	}
	if len(t.queuedOps) >= m.cfg.MaxOps {
		return toolerr.Newf(toolerr.InvalidParams, "transaction %q already has %d queued operations (max %d)", txID, len(t.queuedOps), m.cfg.MaxOps)
	}

	if t.opts.AutoSnapshot && t.snapshotID == "" && op.IsRisky() {
		snap, err := m.snapshots.Create(ctx, t.doc, snapshot.Full)
		if err != nil {
			return err
		}
		if err := m.snapshots.Hold(snap.ID, txID); err != nil {
			return err
		}
		t.snapshotID = snap.ID
		if t.baseline == "" {
			t.baseline = snap.RevisionToken
		}
	}

	t.queuedOps = append(t.queuedOps, op)
	t.state = Queued
	return nil
}

// CommitResult is the outcome of Commit.
type CommitResult struct {
	State     State
	Replies   int
	Rollback  *snapshot.RestoreResult
	FailCause error
}

// Commit transitions the transaction through executing to a terminal
// state.
func (m *Manager) Commit(ctx context.Context, txID string) (CommitResult, error) {
	t, err := m.get(txID)
	if err != nil {
		return CommitResult{}, err
	}

	t.mu.Lock()
	if t.state.terminal() {
		err := toolerr.Newf(toolerr.Conflict, "transaction %q already terminal (%s)", txID, t.state)
		t.mu.Unlock()
		return CommitResult{}, err
	}
	if t.opts.AutoSnapshot && t.snapshotID == "" {
		snap, serr := m.snapshots.Create(ctx, t.doc, snapshot.Full)
		if serr != nil {
			t.mu.Unlock()
			return CommitResult{}, serr
		}
		if serr := m.snapshots.Hold(snap.ID, txID); serr != nil {
			t.mu.Unlock()
			return CommitResult{}, serr
		}
		t.snapshotID = snap.ID
		if t.baseline == "" {
			t.baseline = snap.RevisionToken
		}
	}
	t.state = Executing
	ops := append([]mutation.Mutation(nil), t.queuedOps...)
	isolation := t.opts.Isolation
	t.mu.Unlock()

	unlock := m.lockIfSerializable(t.doc, isolation)
	defer unlock()

	if isolation == ReadCommitted || isolation == Serializable {
		if err := m.validateRevision(ctx, t); err != nil {
			return m.fail(ctx, t, err)
		}
	}

	calls := batch.Compile(ops, batch.Config{})
	result, dispatchErr := batch.Dispatch(ctx, m.client, t.doc, calls, nil)
	if dispatchErr != nil {
		return m.fail(ctx, t, dispatchErr)
	}

	t.mu.Lock()
	t.state = Committed
	t.mu.Unlock()
	m.release(t)

	return CommitResult{State: Committed, Replies: len(result.Replies)}, nil
}

func (m *Manager) fail(ctx context.Context, t *transaction, cause error) (CommitResult, error) {
	t.mu.Lock()
	if t.state.terminal() {
		state := t.state
		t.mu.Unlock()
		return CommitResult{State: state}, toolerr.Wrap(toolerr.TransactionFailed, cause, "transaction already terminal")
	}
	autoRollback := t.opts.AutoRollback
	hasSnapshot := t.snapshotID != ""
	t.mu.Unlock()

	wrapped := toolerr.Wrap(toolerr.TransactionFailed, cause, "transaction failed")

	if autoRollback && hasSnapshot {
		restoreResult, rerr := m.snapshots.Restore(ctx, t.snapshotID)
		t.mu.Lock()
		t.state = RolledBack
		t.mu.Unlock()
		m.release(t)
		if rerr != nil {
			wrapped = wrapped.WithDetails(map[string]any{"rollback.status": "failed", "rollback.error": rerr.Error()})
			return CommitResult{State: RolledBack, FailCause: cause}, wrapped
		}
		wrapped = wrapped.WithDetails(map[string]any{"rollback.status": "restored"})
		return CommitResult{State: RolledBack, Rollback: &restoreResult, FailCause: cause}, wrapped
	}

	t.mu.Lock()
	t.state = Failed
	t.mu.Unlock()
	m.release(t)
	return CommitResult{State: Failed, FailCause: cause}, wrapped
}

// RollbackResult is the outcome of an explicit Rollback.
type RollbackResult struct {
	snapshot.RestoreResult
}

// Rollback explicitly restores a transaction's snapshot and moves it to
// rolled_back. Valid only before a terminal state, and requires an
// existing snapshot. Idempotent: rolling back an already-rolled-back
// transaction succeeds without restoring again.
func (m *Manager) Rollback(ctx context.Context, txID string) (RollbackResult, error) {
	t, err := m.get(txID)
	if err != nil {
		return RollbackResult{}, err
	}

	t.mu.Lock()
	if t.state == RolledBack {
		t.mu.Unlock()
		return RollbackResult{}, nil
	}
	if t.state == Committed || t.state == Failed {
		state := t.state
		t.mu.Unlock()
		return RollbackResult{}, toolerr.Newf(toolerr.Conflict, "transaction %q is %s, cannot roll back", txID, state)
	}
	if t.snapshotID == "" {
		t.mu.Unlock()
		return RollbackResult{}, toolerr.Newf(toolerr.SnapshotMissing, "transaction %q has no snapshot to restore", txID)
	}
	snapID := t.snapshotID
	t.mu.Unlock()

	restoreResult, err := m.snapshots.Restore(ctx, snapID)
	if err != nil {
		return RollbackResult{}, err
	}

	t.mu.Lock()
	t.state = RolledBack
	t.mu.Unlock()
	m.release(t)

	return RollbackResult{restoreResult}, nil
}

// Status returns a read-only view of a transaction.
func (m *Manager) Status(txID string) (Record, error) {
	t, err := m.get(txID)
	if err != nil {
		return Record{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record(), nil
}

// List returns every transaction, optionally filtered to one document.
func (m *Manager) List(doc remote.DocumentHandle) []Record {
	m.mu.Lock()
	txs := make([]*transaction, 0, len(m.txs))
	for _, t := range m.txs {
		txs = append(txs, t)
	}
	m.mu.Unlock()

	var out []Record
	for _, t := range txs {
		t.mu.Lock()
		rec := t.record()
		t.mu.Unlock()
		if doc == "" || rec.DocumentID == string(doc) {
			out = append(out, rec)
		}
	}
	return out
}

// release decrements the active-transaction count and frees the held
// snapshot, since a terminal transaction no longer needs it reserved.
func (m *Manager) release(t *transaction) {
	t.mu.Lock()
	snapID := t.snapshotID
	t.mu.Unlock()
	if snapID != "" {
		m.snapshots.Release(snapID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeCnt > 0 {
		m.activeCnt--
	}
}

func (m *Manager) lockIfSerializable(doc remote.DocumentHandle, isolation Isolation) func() {
	if isolation != Serializable {
		return func() {}
	}
	m.mu.Lock()
	dm, ok := m.docMutexes[doc]
	if !ok {
		dm = &sync.Mutex{}
		m.docMutexes[doc] = dm
	}
	m.mu.Unlock()

	dm.Lock()
	return dm.Unlock
}

// validateRevision re-checks the document's revision token against the
// baseline captured at Begin (or, if Begin captured none, at snapshot
// time), failing with CONFLICT on divergence.
// Applies only under read_committed/serializable isolation.
func (m *Manager) validateRevision(ctx context.Context, t *transaction) error {
	t.mu.Lock()
	baseline := t.baseline
	doc := t.doc
	t.mu.Unlock()
	if baseline == "" {
		return nil
	}

	md, err := m.client.GetMetadata(ctx, doc, nil)
	if err != nil {
		return err
	}
	if md.RevisionToken != baseline {
		return toolerr.Newf(toolerr.Conflict, "document %q revision changed since transaction began", doc).
			WithDetails(map[string]any{"baseline": baseline, "current": md.RevisionToken})
	}
	return nil
}

// RunReaper expires transactions past their absolute deadline on interval
// until ctx is cancelled: expired transactions move to failed or, if
// AutoRollback is set and they hold a snapshot, have it restored and move
// to rolled_back.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.reapExpired(ctx, now)
		}
	}
}

func (m *Manager) reapExpired(ctx context.Context, now time.Time) {
	m.mu.Lock()
	var expired []*transaction
	for _, t := range m.txs {
		t.mu.Lock()
		if !t.state.terminal() && now.After(t.deadline) {
			expired = append(expired, t)
		}
		t.mu.Unlock()
	}
	m.mu.Unlock()

	for _, t := range expired {
		m.fail(ctx, t, toolerr.New(toolerr.Timeout, "transaction deadline exceeded"))
	}
}
