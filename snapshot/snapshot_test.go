package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/toolerr"
)

// fakeClient is a minimal remote.Client stub for snapshot tests.
type fakeClient struct {
	metadata      remote.DocumentMetadata
	metadataErr   error
	export        remote.ExportResult
	exportErr     error
	restoreResult []string
	restoreErr    error
	restoredWith  remote.ExportResult
}

func (f *fakeClient) ReadValues(ctx context.Context, doc remote.DocumentHandle, r rangeref.A1Range, opts remote.ReadOptions) (remote.ReadResult, error) {
	return remote.ReadResult{}, nil
}
func (f *fakeClient) ApplyBatch(ctx context.Context, doc remote.DocumentHandle, ops []mutation.Mutation) (remote.BatchResult, error) {
	return remote.BatchResult{}, nil
}
func (f *fakeClient) GetMetadata(ctx context.Context, doc remote.DocumentHandle, fieldMask []string) (remote.DocumentMetadata, error) {
	return f.metadata, f.metadataErr
}
func (f *fakeClient) Export(ctx context.Context, doc remote.DocumentHandle) (remote.ExportResult, error) {
	return f.export, f.exportErr
}
func (f *fakeClient) Restore(ctx context.Context, doc remote.DocumentHandle, data remote.ExportResult) ([]string, error) {
	f.restoredWith = data
	return f.restoreResult, f.restoreErr
}
func (f *fakeClient) CreateDocument(ctx context.Context, title string) (remote.DocumentHandle, error) {
	return "", nil
}
func (f *fakeClient) CopyDocument(ctx context.Context, source remote.DocumentHandle, title string) (remote.DocumentHandle, error) {
	return "", nil
}

var _ remote.Client = (*fakeClient)(nil)

func TestCreate_MetadataSnapshot(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{DocumentID: "doc1", RevisionToken: "r1"}}
	s := New(Config{}, client)

	snap, err := s.Create(context.Background(), "doc1", Metadata)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if snap.Kind != Metadata || snap.DocumentID != "doc1" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if _, ok := s.Get(snap.ID); !ok {
		t.Error("expected snapshot to be retrievable after Create")
	}
}

func TestCreate_FullSnapshotExceedingLimitFails(t *testing.T) {
	client := &fakeClient{export: remote.ExportResult{ContentType: "application/zip", Data: make([]byte, 100)}}
	s := New(Config{MaxFullSizeBytes: 50}, client)

	_, err := s.Create(context.Background(), "doc1", Full)
	if toolerr.CodeOf(err) != toolerr.SnapshotTooLarge {
		t.Fatalf("Create() err = %v, want SNAPSHOT_TOO_LARGE", err)
	}
}

func TestRestore_FullSnapshotRoundTripsThroughClient(t *testing.T) {
	data := remote.ExportResult{ContentType: "application/zip", Data: []byte("payload")}
	client := &fakeClient{export: data, restoreResult: []string{"comments"}}
	s := New(Config{}, client)

	snap, err := s.Create(context.Background(), "doc1", Full)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := s.Restore(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(res.Irrecoverable) != 1 || res.Irrecoverable[0] != "comments" {
		t.Errorf("Restore() irrecoverable = %v, want [comments]", res.Irrecoverable)
	}
	if string(client.restoredWith.Data) != "payload" {
		t.Errorf("client restored with %q, want %q", client.restoredWith.Data, "payload")
	}
}

func TestRestore_MetadataSnapshotReportsIrrecoverableCellValues(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{DocumentID: "doc1"}}
	s := New(Config{}, client)

	snap, err := s.Create(context.Background(), "doc1", Metadata)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	res, err := s.Restore(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	found := false
	for _, v := range res.Irrecoverable {
		if v == "cellValues" {
			found = true
		}
	}
	if !found {
		t.Errorf("Restore() irrecoverable = %v, want cellValues listed", res.Irrecoverable)
	}
}

func TestRestore_MissingSnapshot(t *testing.T) {
	s := New(Config{}, &fakeClient{})
	_, err := s.Restore(context.Background(), "nonexistent")
	if toolerr.CodeOf(err) != toolerr.SnapshotMissing {
		t.Fatalf("Restore() err = %v, want SNAPSHOT_MISSING", err)
	}
}

func TestHold_RejectsSecondDistinctTransaction(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{DocumentID: "doc1"}}
	s := New(Config{}, client)
	snap, _ := s.Create(context.Background(), "doc1", Metadata)

	if err := s.Hold(snap.ID, "tx1"); err != nil {
		t.Fatalf("first Hold: %v", err)
	}
	if err := s.Hold(snap.ID, "tx1"); err != nil {
		t.Errorf("re-Hold by same transaction should be idempotent: %v", err)
	}
	if err := s.Hold(snap.ID, "tx2"); toolerr.CodeOf(err) != toolerr.Conflict {
		t.Errorf("Hold by second transaction = %v, want CONFLICT", err)
	}
}

func TestGC_RemovesOnlyExpiredUnheldSnapshots(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{DocumentID: "doc1"}}
	s := New(Config{TTL: time.Hour}, client)

	expired, _ := s.Create(context.Background(), "doc1", Metadata)
	held, _ := s.Create(context.Background(), "doc1", Metadata)
	fresh, _ := s.Create(context.Background(), "doc1", Metadata)

	if err := s.Hold(held.ID, "tx1"); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	s.mu.Lock()
	s.snapshots[expired.ID].snap.CreatedAt = time.Now().Add(-2 * time.Hour)
	s.snapshots[held.ID].snap.CreatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	removed := s.GC(time.Now())
	if removed != 1 {
		t.Errorf("GC removed %d, want 1", removed)
	}
	if _, ok := s.Get(expired.ID); ok {
		t.Error("expired unheld snapshot should be gone")
	}
	if _, ok := s.Get(held.ID); !ok {
		t.Error("held snapshot should survive GC despite being expired")
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Error("fresh snapshot should survive GC")
	}
}
