package remote

import (
	"context"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
)

// DocumentHandle is an opaque identifier for a remote spreadsheet, created
// on first reference and cached per session.
type DocumentHandle string

// ReadOptions controls a values-read call.
type ReadOptions struct {
	ValueRenderOption string // e.g. "FORMATTED_VALUE", "UNFORMATTED_VALUE", "FORMULA"
	FieldMask         []string
}

// ReadResult is the response to a values read, sliced back to the
// requester's original range by the merger when reads were coalesced.
type ReadResult struct {
	Range         rangeref.A1Range
	Values        [][]any
	RevisionToken string
}

// BatchResult is the response to a compiled batch dispatch.
type BatchResult struct {
	Replies       []MutationReply
	RevisionToken string
}

// MutationReply is the per-mutation outcome within a BatchResult.
type MutationReply struct {
	OperationKey string
	Success      bool
	Err          error
	Details      map[string]any
}

// DocumentMetadata describes sheet/document structure, used by the impact
// analyzer and the snapshot service's "metadata" kind.
type DocumentMetadata struct {
	DocumentID      string
	RevisionToken   string
	Sheets          []SheetMetadata
	NamedRanges     []map[string]any
	ProtectedRanges []map[string]any
}

// SheetMetadata describes one sheet's structure and formula content.
type SheetMetadata struct {
	SheetID  int64
	Title    string
	RowCount int64
	ColCount int64
	Formulas map[string]string // A1 cell -> formula text
	Charts   []map[string]any
	Pivots   []map[string]any
}

// ExportResult is the payload of a full-document export, used by the
// Snapshot Service's "full" kind.
type ExportResult struct {
	ContentType string
	Data        []byte
}

// Client is the abstraction the pipeline uses to reach the remote
// spreadsheet API. Implementations must accept ctx cancellation on every
// call and return errors classified via ClassifyError/ClassifyStatus so
// callers never need to inspect transport-level details directly.
type Client interface {
	// ReadValues reads one range with the given render/field-mask options.
	ReadValues(ctx context.Context, doc DocumentHandle, r rangeref.A1Range, opts ReadOptions) (ReadResult, error)

	// ApplyBatch dispatches a compiled, ordered sequence of mutations
	// against one document in a single remote call.
	ApplyBatch(ctx context.Context, doc DocumentHandle, ops []mutation.Mutation) (BatchResult, error)

	// GetMetadata fetches sheet/document structure, optionally restricted
	// to fields in fieldMask.
	GetMetadata(ctx context.Context, doc DocumentHandle, fieldMask []string) (DocumentMetadata, error)

	// Export renders the full document for cold storage (Snapshot kind=full).
	Export(ctx context.Context, doc DocumentHandle) (ExportResult, error)

	// Restore applies previously exported content back to the document.
	// irrecoverable lists remote-side state the restore could not bring
	// back (comments, revision history, ...); callers must surface it, not
	// swallow it.
	Restore(ctx context.Context, doc DocumentHandle, data ExportResult) (irrecoverable []string, err error)

	// CreateDocument / CopyDocument support AddSheet-adjacent workflows
	// that originate a new document rather than mutate an existing one.
	CreateDocument(ctx context.Context, title string) (DocumentHandle, error)
	CopyDocument(ctx context.Context, source DocumentHandle, title string) (DocumentHandle, error)
}
