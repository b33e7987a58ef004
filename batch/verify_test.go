package batch

import (
	"context"
	"testing"

	"github.com/sheetmcp/sheetcore/mutation"
)

func TestVerify_MatchingReadReportsMatch(t *testing.T) {
	client := &fakeClient{readValues: [][]any{{1}}}
	ops := []mutation.Mutation{
		{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}, Verify: true},
	}
	results, err := Verify(context.Background(), client, "doc1", ops, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 1 || !results[0].Match {
		t.Errorf("results = %+v, want one match", results)
	}
}

func TestVerify_MismatchIsReportedNotSwallowed(t *testing.T) {
	client := &fakeClient{readValues: [][]any{{99}}}
	ops := []mutation.Mutation{
		{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}, Verify: true},
	}
	results, err := Verify(context.Background(), client, "doc1", ops, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 1 || results[0].Match {
		t.Errorf("results = %+v, want one mismatch", results)
	}
}

func TestVerify_SkipsMutationsNotMarkedVerify(t *testing.T) {
	client := &fakeClient{readValues: [][]any{{1}}}
	ops := []mutation.Mutation{
		{Kind: mutation.UpdateValues, Range: rng(t, 0), Values: [][]any{{1}}, Verify: false},
		{Kind: mutation.ClearRange, Range: rng(t, 1)},
	}
	results, err := Verify(context.Background(), client, "doc1", ops, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none (nothing marked Verify)", results)
	}
}
