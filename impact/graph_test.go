package impact

import (
	"context"
	"testing"
	"time"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
)

func ctxTimeout() <-chan time.Time {
	return time.After(2 * time.Second)
}

type fakeClient struct {
	metadata remote.DocumentMetadata
	calls    int
}

func (f *fakeClient) ReadValues(ctx context.Context, doc remote.DocumentHandle, r rangeref.A1Range, opts remote.ReadOptions) (remote.ReadResult, error) {
	return remote.ReadResult{}, nil
}
func (f *fakeClient) ApplyBatch(ctx context.Context, doc remote.DocumentHandle, ops []mutation.Mutation) (remote.BatchResult, error) {
	return remote.BatchResult{}, nil
}
func (f *fakeClient) GetMetadata(ctx context.Context, doc remote.DocumentHandle, fieldMask []string) (remote.DocumentMetadata, error) {
	f.calls++
	return f.metadata, nil
}
func (f *fakeClient) Export(ctx context.Context, doc remote.DocumentHandle) (remote.ExportResult, error) {
	return remote.ExportResult{}, nil
}
func (f *fakeClient) Restore(ctx context.Context, doc remote.DocumentHandle, data remote.ExportResult) ([]string, error) {
	return nil, nil
}
func (f *fakeClient) CreateDocument(ctx context.Context, title string) (remote.DocumentHandle, error) {
	return "", nil
}
func (f *fakeClient) CopyDocument(ctx context.Context, source remote.DocumentHandle, title string) (remote.DocumentHandle, error) {
	return "", nil
}

var _ remote.Client = (*fakeClient)(nil)

func TestBuildGraph_DirectDependentReferencesTarget(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{
		DocumentID:    "doc1",
		RevisionToken: "r1",
		Sheets: []remote.SheetMetadata{
			{Title: "Sheet1", Formulas: map[string]string{"C1": "=SUM(A1:A10)"}},
		},
	}}

	g, err := BuildGraph(context.Background(), client, "doc1")
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	target := rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0} // A1
	deps := g.Dependents(target)
	if len(deps) != 1 {
		t.Fatalf("Dependents = %+v, want 1 (C1)", deps)
	}
	if deps[0].Row != 0 || deps[0].Col != 2 {
		t.Errorf("dependent = %+v, want C1 (row 0, col 2)", deps[0])
	}
}

func TestBuildGraph_DetectsCycleWithoutInfiniteRecursion(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{
		Sheets: []remote.SheetMetadata{
			{Title: "Sheet1", Formulas: map[string]string{
				"A1": "=B1",
				"B1": "=A1",
			}},
		},
	}}

	done := make(chan *DependencyGraph, 1)
	go func() {
		g, err := BuildGraph(context.Background(), client, "doc1")
		if err != nil {
			t.Errorf("BuildGraph: %v", err)
		}
		done <- g
	}()

	select {
	case g := <-done:
		if len(g.Cycles) == 0 {
			t.Error("expected at least one cycle to be recorded")
		}
	case <-ctxTimeout():
		t.Fatal("BuildGraph did not terminate on cyclic input")
	}
}

func TestTransitiveAffected_FollowsChainAndStopsAtVisited(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{
		Sheets: []remote.SheetMetadata{
			{Title: "Sheet1", Formulas: map[string]string{
				"B1": "=A1",
				"C1": "=B1",
			}},
		},
	}}
	g, err := BuildGraph(context.Background(), client, "doc1")
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	a1 := rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0}
	direct := g.Dependents(a1)
	all := g.TransitiveAffected(direct)
	if len(all) != 2 {
		t.Errorf("TransitiveAffected = %+v, want B1 and C1 (2 cells)", all)
	}
}

func TestGraphCache_RebuildsOnlyWhenRevisionChanges(t *testing.T) {
	client := &fakeClient{metadata: remote.DocumentMetadata{RevisionToken: "r1"}}
	cache := NewGraphCache(client)

	g1, err := cache.Get(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	g2, err := cache.Get(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if g1 != g2 {
		t.Error("expected cached graph to be reused when revision token unchanged")
	}

	client.metadata.RevisionToken = "r2"
	g3, err := cache.Get(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("third Get: %v", err)
	}
	if g3 == g1 {
		t.Error("expected a fresh graph once the revision token changed")
	}
}
