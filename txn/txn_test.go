package txn

import (
	"context"
	"testing"
	"time"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/snapshot"
	"github.com/sheetmcp/sheetcore/toolerr"
)

type fakeClient struct {
	metadata    remote.DocumentMetadata
	export      remote.ExportResult
	applyErr    error
	restoreErr  error
	applyCount  int
}

func (f *fakeClient) ReadValues(ctx context.Context, doc remote.DocumentHandle, r rangeref.A1Range, opts remote.ReadOptions) (remote.ReadResult, error) {
	return remote.ReadResult{}, nil
}
func (f *fakeClient) ApplyBatch(ctx context.Context, doc remote.DocumentHandle, ops []mutation.Mutation) (remote.BatchResult, error) {
	f.applyCount++
	if f.applyErr != nil {
		return remote.BatchResult{}, f.applyErr
	}
	replies := make([]remote.MutationReply, len(ops))
	for i, op := range ops {
		replies[i] = remote.MutationReply{OperationKey: op.OperationKey(), Success: true}
	}
	return remote.BatchResult{Replies: replies, RevisionToken: "rev-2"}, nil
}
func (f *fakeClient) GetMetadata(ctx context.Context, doc remote.DocumentHandle, fieldMask []string) (remote.DocumentMetadata, error) {
	return f.metadata, nil
}
func (f *fakeClient) Export(ctx context.Context, doc remote.DocumentHandle) (remote.ExportResult, error) {
	return f.export, nil
}
func (f *fakeClient) Restore(ctx context.Context, doc remote.DocumentHandle, data remote.ExportResult) ([]string, error) {
	return nil, f.restoreErr
}
func (f *fakeClient) CreateDocument(ctx context.Context, title string) (remote.DocumentHandle, error) {
	return "", nil
}
func (f *fakeClient) CopyDocument(ctx context.Context, source remote.DocumentHandle, title string) (remote.DocumentHandle, error) {
	return "", nil
}

var _ remote.Client = (*fakeClient)(nil)

func rng(t *testing.T, row int64) *rangeref.A1Range {
	t.Helper()
	r := rangeref.A1Range{Sheet: "Sheet1", StartRow: row, StartCol: 0, EndRow: row, EndCol: 0}
	if err := r.Validate(); err != nil {
		t.Fatalf("invalid range: %v", err)
	}
	return &r
}

func newManager(client remote.Client) *Manager {
	store := snapshot.New(snapshot.Config{}, client)
	return New(Config{}, client, store)
}

func TestBegin_CreatesPendingTransaction(t *testing.T) {
	m := newManager(&fakeClient{})
	txID, err := m.Begin(context.Background(), "doc1", Options{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rec, err := m.Status(txID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rec.State != Pending {
		t.Errorf("State = %s, want pending", rec.State)
	}
}

func TestBegin_FailsPastMaxActive(t *testing.T) {
	m := newManager(&fakeClient{})
	m.cfg.MaxActive = 1
	if _, err := m.Begin(context.Background(), "doc1", Options{}); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	_, err := m.Begin(context.Background(), "doc1", Options{})
	if toolerr.CodeOf(err) != toolerr.QuotaExceeded {
		t.Fatalf("second Begin err = %v, want QUOTA_EXCEEDED", err)
	}
}

func TestQueue_TransitionsToQueuedAndRejectsAfterTerminal(t *testing.T) {
	client := &fakeClient{}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{})

	op := mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}}
	if err := m.Queue(context.Background(), txID, op); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	rec, _ := m.Status(txID)
	if rec.State != Queued || rec.QueuedOps != 1 {
		t.Errorf("rec = %+v, want Queued with 1 op", rec)
	}

	if _, err := m.Commit(context.Background(), txID); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := m.Queue(context.Background(), txID, op); err == nil {
		t.Error("Queue after commit should fail")
	}
}

func TestCommit_SucceedsAndDispatchesAllQueuedOps(t *testing.T) {
	client := &fakeClient{}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{})

	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, 1), Values: [][]any{{2}}})

	result, err := m.Commit(context.Background(), txID)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if result.State != Committed {
		t.Errorf("State = %s, want committed", result.State)
	}
	if client.applyCount != 1 {
		t.Errorf("ApplyBatch invoked %d times, want 1 (both ops batch together)", client.applyCount)
	}

	rec, _ := m.Status(txID)
	if rec.State != Committed {
		t.Errorf("Status after commit = %s, want committed", rec.State)
	}
}

func TestQueue_AutoSnapshotCreatesSnapshotForRiskyOp(t *testing.T) {
	client := &fakeClient{export: remote.ExportResult{Data: []byte("state")}}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{AutoSnapshot: true, AutoRollback: true})

	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.ClearRange, Range: rng(t, 0)})

	rec, _ := m.Status(txID)
	if rec.SnapshotID == "" {
		t.Fatal("expected snapshot to be created eagerly for a risky queued mutation")
	}
}

func TestCommit_AutoRollbackRestoresSnapshotOnFailure(t *testing.T) {
	client := &fakeClient{export: remote.ExportResult{Data: []byte("state")}, applyErr: toolerr.New(toolerr.InvalidParams, "bad op")}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{AutoSnapshot: true, AutoRollback: true})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.DeleteSheet, SheetID: 99999})

	result, err := m.Commit(context.Background(), txID)
	if err == nil {
		t.Fatal("expected Commit to report the transaction failure")
	}
	if toolerr.CodeOf(err) != toolerr.TransactionFailed {
		t.Errorf("Commit() err = %v, want TRANSACTION_FAILED", err)
	}
	if result.State != RolledBack {
		t.Errorf("result.State = %s, want rolled_back", result.State)
	}

	rec, _ := m.Status(txID)
	if rec.State != RolledBack {
		t.Errorf("Status = %s, want rolled_back", rec.State)
	}
}

func TestCommit_NoAutoRollbackLeavesTransactionFailed(t *testing.T) {
	client := &fakeClient{applyErr: toolerr.New(toolerr.InvalidParams, "bad op")}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{AutoRollback: false})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}})

	result, _ := m.Commit(context.Background(), txID)
	if result.State != Failed {
		t.Errorf("result.State = %s, want failed", result.State)
	}
}

func TestRollback_IsIdempotent(t *testing.T) {
	client := &fakeClient{export: remote.ExportResult{Data: []byte("state")}}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{AutoSnapshot: true})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.ClearRange, Range: rng(t, 0)})

	if _, err := m.Rollback(context.Background(), txID); err != nil {
		t.Fatalf("first Rollback: %v", err)
	}
	if _, err := m.Rollback(context.Background(), txID); err != nil {
		t.Errorf("second Rollback should be idempotent, got %v", err)
	}
}

func TestRollback_RequiresExistingSnapshot(t *testing.T) {
	m := newManager(&fakeClient{})
	txID, _ := m.Begin(context.Background(), "doc1", Options{})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}})

	_, err := m.Rollback(context.Background(), txID)
	if toolerr.CodeOf(err) != toolerr.SnapshotMissing {
		t.Fatalf("Rollback() err = %v, want SNAPSHOT_MISSING", err)
	}
}

func TestCommit_ReadCommittedFailsOnRevisionDivergence(t *testing.T) {
	client := &fakeClient{
		export:   remote.ExportResult{Data: []byte("state")},
		metadata: remote.DocumentMetadata{RevisionToken: "rev-1"},
	}
	m := newManager(client)
	txID, _ := m.Begin(context.Background(), "doc1", Options{Isolation: ReadCommitted, AutoSnapshot: true})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.ClearRange, Range: rng(t, 0)})
	client.metadata = remote.DocumentMetadata{RevisionToken: "rev-changed"}

	_, err := m.Commit(context.Background(), txID)
	if err == nil {
		t.Fatal("expected revision divergence to fail commit")
	}
}

func TestRunReaper_FailsExpiredTransactions(t *testing.T) {
	client := &fakeClient{}
	m := newManager(client)
	m.cfg.DefaultDeadline = time.Millisecond
	txID, _ := m.Begin(context.Background(), "doc1", Options{})
	_ = m.Queue(context.Background(), txID, mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}})

	time.Sleep(5 * time.Millisecond)
	m.reapExpired(context.Background(), time.Now())

	rec, _ := m.Status(txID)
	if rec.State != Failed {
		t.Errorf("State after reap = %s, want failed", rec.State)
	}
}

func TestList_FiltersByDocument(t *testing.T) {
	m := newManager(&fakeClient{})
	tx1, _ := m.Begin(context.Background(), "doc1", Options{})
	_, _ = m.Begin(context.Background(), "doc2", Options{})

	recs := m.List("doc1")
	if len(recs) != 1 || recs[0].TxID != tx1 {
		t.Errorf("List(doc1) = %+v, want only tx1", recs)
	}
	if len(m.List("")) != 2 {
		t.Errorf("List(\"\") should return all transactions")
	}
}
