package impact

import (
	"context"
	"testing"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
)

func TestAnalyze_HighSeverityForStructuralMutationWithDependents(t *testing.T) {
	formulas := make(map[string]string)
	for i := 0; i < 5; i++ {
		formulas[cellA1(i, 2)] = "=A1"
	}
	client := &fakeClient{metadata: remote.DocumentMetadata{
		Sheets: []remote.SheetMetadata{{Title: "Sheet1", Formulas: formulas, RowCount: 100, ColCount: 10}},
	}}
	g, err := BuildGraph(context.Background(), client, "doc1")
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	target := rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0}
	analysis := Analyze(g, target, client.metadata, mutation.DeleteDimension)

	if analysis.Severity != High {
		t.Errorf("Severity = %s, want high", analysis.Severity)
	}
	if !analysis.CanProceed {
		t.Error("CanProceed should always be true; the core flags, it doesn't block")
	}
	if !analysis.RequiresConfirmation {
		t.Error("RequiresConfirmation should be true at high severity")
	}
}

func TestAnalyze_CriticalWhenProtectedRangeTouched(t *testing.T) {
	metadata := remote.DocumentMetadata{
		Sheets:          []remote.SheetMetadata{{Title: "Sheet1", RowCount: 10, ColCount: 10}},
		ProtectedRanges: []map[string]any{{"range": "Sheet1!A1:A5"}},
	}
	client := &fakeClient{metadata: metadata}
	g, _ := BuildGraph(context.Background(), client, "doc1")

	target := rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 2, EndCol: 0}
	analysis := Analyze(g, target, metadata, mutation.ClearRange)

	if analysis.Severity != Critical {
		t.Errorf("Severity = %s, want critical", analysis.Severity)
	}
}

func TestAnalyze_LowSeverityForIsolatedCellWrite(t *testing.T) {
	metadata := remote.DocumentMetadata{Sheets: []remote.SheetMetadata{{Title: "Sheet1", RowCount: 100, ColCount: 100}}}
	client := &fakeClient{metadata: metadata}
	g, _ := BuildGraph(context.Background(), client, "doc1")

	target := rangeref.A1Range{Sheet: "Sheet1", StartRow: 50, StartCol: 50, EndRow: 50, EndCol: 50}
	analysis := Analyze(g, target, metadata, mutation.UpdateValues)

	if analysis.Severity != Low {
		t.Errorf("Severity = %s, want low", analysis.Severity)
	}
	if analysis.RequiresConfirmation {
		t.Error("low severity should not require confirmation")
	}
}

func TestAnalyze_MediumSeverityWhenManyArtifactsOverlap(t *testing.T) {
	var charts []map[string]any
	for i := 0; i < 10; i++ {
		charts = append(charts, map[string]any{"range": "Sheet1!A1:A1"})
	}
	metadata := remote.DocumentMetadata{
		Sheets: []remote.SheetMetadata{{Title: "Sheet1", Charts: charts, RowCount: 100, ColCount: 100}},
	}
	client := &fakeClient{metadata: metadata}
	g, _ := BuildGraph(context.Background(), client, "doc1")

	target := rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 0, EndCol: 0}
	analysis := Analyze(g, target, metadata, mutation.UpdateValues)

	if analysis.Severity != Medium {
		t.Errorf("Severity = %s, want medium", analysis.Severity)
	}
}

func TestAnalyze_RecommendsNarrowingWhenRangeCoversMostOfSheet(t *testing.T) {
	metadata := remote.DocumentMetadata{Sheets: []remote.SheetMetadata{{Title: "Sheet1", RowCount: 10, ColCount: 10}}}
	client := &fakeClient{metadata: metadata}
	g, _ := BuildGraph(context.Background(), client, "doc1")

	target := rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 9, EndCol: 9}
	analysis := Analyze(g, target, metadata, mutation.UpdateValues)

	found := false
	for _, r := range analysis.Recommendations {
		if r != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected a narrowing recommendation for a near-whole-sheet range")
	}
}

func cellA1(row, col int) string {
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return string(letters[col]) + itoa(row+1)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
