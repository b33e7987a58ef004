package batch

import (
	"context"
	"fmt"

	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/remote"
)

// VerificationResult is the outcome of re-reading one verified mutation.
type VerificationResult struct {
	OperationKey string
	Match        bool
	Expected     [][]any
	Got          [][]any
}

// Verify re-reads the target range of every mutation marked Verify and
// compares it against the values it wrote. Mismatches are returned, not
// silently swallowed;
// mutations without a comparable target (no range, no values) are skipped.
func Verify(ctx context.Context, client remote.Client, doc remote.DocumentHandle, ops []mutation.Mutation, sink ProgressSink) ([]VerificationResult, error) {
	if sink == nil {
		sink = noopSink
	}

	var verifiable []mutation.Mutation
	for _, op := range ops {
		if op.Verify && op.Range != nil && op.Values != nil {
			verifiable = append(verifiable, op)
		}
	}

	results := make([]VerificationResult, 0, len(verifiable))
	for i, op := range verifiable {
		sink(Progress{Phase: PhaseVerify, Current: i + 1, Total: len(verifiable), Message: string(doc)})

		read, err := client.ReadValues(ctx, doc, *op.Range, remote.ReadOptions{})
		if err != nil {
			return results, err
		}

		results = append(results, VerificationResult{
			OperationKey: op.OperationKey(),
			Match:        gridsEqual(op.Values, read.Values),
			Expected:     op.Values,
			Got:          read.Values,
		})
	}
	return results, nil
}

func gridsEqual(a, b [][]any) bool {
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if len(a[r]) != len(b[r]) {
			return false
		}
		for c := range a[r] {
			if fmt.Sprintf("%v", a[r][c]) != fmt.Sprintf("%v", b[r][c]) {
				return false
			}
		}
	}
	return true
}
