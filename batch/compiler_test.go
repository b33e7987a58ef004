package batch

import (
	"testing"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
)

func rng(t *testing.T, row int64) *rangeref.A1Range {
	t.Helper()
	r := rangeref.A1Range{Sheet: "Sheet1", StartRow: row, StartCol: 0, EndRow: row, EndCol: 0}
	if err := r.Validate(); err != nil {
		t.Fatalf("invalid range: %v", err)
	}
	return &r
}

func TestCompile_ConsecutiveBatchableMutationsFoldIntoOneCall(t *testing.T) {
	ops := []mutation.Mutation{
		{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}},
		{Kind: mutation.UpdateValues, Range: rng(t, 1), Values: [][]any{{2}}},
		{Kind: mutation.ClearRange, Range: rng(t, 2)},
	}
	calls := Compile(ops, Config{})
	if len(calls) != 1 {
		t.Fatalf("Compile() produced %d calls, want 1", len(calls))
	}
	if len(calls[0].Mutations) != 3 {
		t.Errorf("call has %d mutations, want 3", len(calls[0].Mutations))
	}
}

func TestCompile_NonBatchableKindBecomesSingletonInPlace(t *testing.T) {
	ops := []mutation.Mutation{
		{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}},
		{Kind: mutation.CopySheet, Sheet: "Sheet1", SheetID: 1},
		{Kind: mutation.UpdateValues, Range: rng(t, 1), Values: [][]any{{2}}},
	}
	calls := Compile(ops, Config{})
	if len(calls) != 3 {
		t.Fatalf("Compile() produced %d calls, want 3 (batch, singleton, batch)", len(calls))
	}
	if !calls[1].Singleton || calls[1].Mutations[0].Kind != mutation.CopySheet {
		t.Errorf("middle call = %+v, want singleton CopySheet", calls[1])
	}
	if calls[0].Singleton || calls[2].Singleton {
		t.Error("batchable calls incorrectly marked singleton")
	}
}

func TestCompile_PreservesSubmissionOrderWithinACall(t *testing.T) {
	ops := []mutation.Mutation{
		{Kind: mutation.UpdateValues, Range: rng(t, 5), Values: [][]any{{"a"}}},
		{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{"b"}}},
	}
	calls := Compile(ops, Config{})
	if len(calls) != 1 {
		t.Fatalf("Compile() produced %d calls, want 1", len(calls))
	}
	got := calls[0].Mutations
	if got[0].Range.StartRow != 5 || got[1].Range.StartRow != 0 {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestCompile_SplitsAtMaxBatchSize(t *testing.T) {
	var ops []mutation.Mutation
	for i := int64(0); i < 5; i++ {
		ops = append(ops, mutation.Mutation{Kind: mutation.UpdateValues, Range: rng(t, i), Values: [][]any{{i}}})
	}
	calls := Compile(ops, Config{MaxBatchSize: 2})
	if len(calls) != 3 {
		t.Fatalf("Compile() produced %d calls, want 3 (2+2+1)", len(calls))
	}
	if len(calls[0].Mutations) != 2 || len(calls[1].Mutations) != 2 || len(calls[2].Mutations) != 1 {
		t.Errorf("unexpected group sizes: %d, %d, %d", len(calls[0].Mutations), len(calls[1].Mutations), len(calls[2].Mutations))
	}
}

func TestCompile_FieldMaskIsUnionOfMutationMasks(t *testing.T) {
	ops := []mutation.Mutation{
		{Kind: mutation.FormatCells, Range: rng(t, 0), FieldMask: []string{"userEnteredFormat"}},
		{Kind: mutation.FormatCells, Range: rng(t, 1), FieldMask: []string{"textFormat", "userEnteredFormat"}},
	}
	calls := Compile(ops, Config{})
	if len(calls) != 1 {
		t.Fatalf("Compile() produced %d calls, want 1", len(calls))
	}
	mask := calls[0].FieldMask
	if len(mask) != 2 {
		t.Errorf("FieldMask = %v, want 2 unique entries", mask)
	}
}
