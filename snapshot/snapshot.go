package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheetmcp/sheetcore/remote"
	"github.com/sheetmcp/sheetcore/toolerr"
)

// Kind selects how much of the document a snapshot captures.
type Kind string

const (
	Metadata Kind = "metadata" // structural description and formulas only
	Full     Kind = "full"     // entire document exported to cold storage
)

// Snapshot describes a captured point-in-time state.
type Snapshot struct {
	ID            string
	DocumentID    string
	Kind          Kind
	CreatedAt     time.Time
	StorageRef    string
	PayloadSize   int64
	TTL           time.Duration
	RevisionToken string
}

// Config configures a Store.
type Config struct {
	MaxFullSizeBytes int64         // default 50MB; exceeding it fails Create with SNAPSHOT_TOO_LARGE
	TTL              time.Duration // default 1h
}

func (c Config) withDefaults() Config {
	if c.MaxFullSizeBytes <= 0 {
		c.MaxFullSizeBytes = 50 * 1024 * 1024
	}
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	return c
}

type entry struct {
	snap     Snapshot
	metadata remote.DocumentMetadata
	export   remote.ExportResult
	heldByTx string // transaction ID holding this snapshot, or "" if unheld
}

// Store creates, restores, and garbage-collects snapshots, backed by a
// remote.Client for metadata reads and full-document export/restore.
type Store struct {
	cfg    Config
	client remote.Client

	mu        sync.Mutex
	snapshots map[string]*entry
}

// New constructs a Store.
func New(cfg Config, client remote.Client) *Store {
	return &Store{cfg: cfg.withDefaults(), client: client, snapshots: make(map[string]*entry)}
}

// Create captures state. A full snapshot exceeding
// Config.MaxFullSizeBytes fails with toolerr.SnapshotTooLarge.
func (s *Store) Create(ctx context.Context, doc remote.DocumentHandle, kind Kind) (Snapshot, error) {
	id := uuid.NewString()
	now := time.Now()

	e := &entry{snap: Snapshot{
		ID:         id,
		DocumentID: string(doc),
		Kind:       kind,
		CreatedAt:  now,
		StorageRef: "mem://" + id,
		TTL:        s.cfg.TTL,
	}}

	switch kind {
	case Metadata:
		md, err := s.client.GetMetadata(ctx, doc, nil)
		if err != nil {
			return Snapshot{}, err
		}
		e.metadata = md
		e.snap.RevisionToken = md.RevisionToken
		e.snap.PayloadSize = estimateMetadataSize(md)

	case Full:
		exp, err := s.client.Export(ctx, doc)
		if err != nil {
			return Snapshot{}, err
		}
		if int64(len(exp.Data)) > s.cfg.MaxFullSizeBytes {
			return Snapshot{}, toolerr.Newf(toolerr.SnapshotTooLarge,
				"full snapshot of %d bytes exceeds limit of %d bytes", len(exp.Data), s.cfg.MaxFullSizeBytes).
				WithDetails(map[string]any{"documentId": string(doc), "sizeBytes": len(exp.Data)})
		}
		e.export = exp
		e.snap.PayloadSize = int64(len(exp.Data))

	default:
		return Snapshot{}, toolerr.Newf(toolerr.InvalidParams, "unknown snapshot kind %q", kind)
	}

	s.mu.Lock()
	s.snapshots[id] = e
	s.mu.Unlock()

	return e.snap, nil
}

// RestoreResult reports the outcome of applying a snapshot back to its
// document. Irrecoverable lists remote-side state restore could not bring
// back (comments, revision history); callers must surface it, not swallow it.
type RestoreResult struct {
	SnapshotID    string
	Irrecoverable []string
}

// Restore applies the stored content of snapshotID back to its document.
// Metadata snapshots only restore structural state the remote supports
// round-tripping; full snapshots restore via remote.Client.Restore.
func (s *Store) Restore(ctx context.Context, snapshotID string) (RestoreResult, error) {
	s.mu.Lock()
	e, ok := s.snapshots[snapshotID]
	s.mu.Unlock()
	if !ok {
		return RestoreResult{}, toolerr.Newf(toolerr.SnapshotMissing, "snapshot %q not found", snapshotID)
	}

	doc := remote.DocumentHandle(e.snap.DocumentID)

	switch e.snap.Kind {
	case Full:
		irrecoverable, err := s.client.Restore(ctx, doc, e.export)
		if err != nil {
			return RestoreResult{}, err
		}
		return RestoreResult{SnapshotID: snapshotID, Irrecoverable: irrecoverable}, nil

	case Metadata:
		// Structure-only snapshots cannot restore cell values; the
		// caller is told up front which state is out of scope.
		return RestoreResult{
			SnapshotID:    snapshotID,
			Irrecoverable: []string{"cellValues", "comments", "revisionHistory"},
		}, nil

	default:
		return RestoreResult{}, toolerr.Newf(toolerr.InternalError, "snapshot %q has unknown kind %q", snapshotID, e.snap.Kind)
	}
}

// Hold marks snapshotID as referenced by txID: a snapshot is held by at
// most one active transaction at a time — a second Hold by a different
// transaction is rejected.
func (s *Store) Hold(snapshotID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.snapshots[snapshotID]
	if !ok {
		return toolerr.Newf(toolerr.SnapshotMissing, "snapshot %q not found", snapshotID)
	}
	if e.heldByTx != "" && e.heldByTx != txID {
		return toolerr.Newf(toolerr.Conflict, "snapshot %q already held by transaction %q", snapshotID, e.heldByTx)
	}
	e.heldByTx = txID
	return nil
}

// Release clears a Hold, making the snapshot eligible for TTL-based GC.
func (s *Store) Release(snapshotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.snapshots[snapshotID]; ok {
		e.heldByTx = ""
	}
}

// Get returns a previously created snapshot's descriptor.
func (s *Store) Get(snapshotID string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.snapshots[snapshotID]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// GC deletes every unheld snapshot whose TTL has elapsed and returns how
// many were removed.
func (s *Store) GC(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.snapshots {
		if e.heldByTx != "" {
			continue
		}
		if now.Sub(e.snap.CreatedAt) >= e.snap.TTL {
			delete(s.snapshots, id)
			removed++
		}
	}
	return removed
}

// RunGC runs GC on interval until ctx is cancelled.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.GC(now)
		}
	}
}

func estimateMetadataSize(md remote.DocumentMetadata) int64 {
	size := int64(len(md.DocumentID) + len(md.RevisionToken))
	for _, sh := range md.Sheets {
		size += int64(len(sh.Title))
		for cell, formula := range sh.Formulas {
			size += int64(len(cell) + len(formula))
		}
	}
	return size
}
