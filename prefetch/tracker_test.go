package prefetch

import (
	"testing"
	"time"

	"github.com/sheetmcp/sheetcore/rangeref"
)

func access(doc string, row int64, ts time.Time) Access {
	return Access{
		DocumentID: doc,
		SheetID:    "Sheet1",
		Range:      rangeref.A1Range{Sheet: "Sheet1", StartRow: row, StartCol: 0, EndRow: row, EndCol: 0},
		Action:     "read",
		Timestamp:  ts,
	}
}

func TestRecord_BoundsWindowToConfiguredSize(t *testing.T) {
	tr := New(Config{WindowSize: 3})
	now := time.Now()
	for i := int64(0); i < 5; i++ {
		tr.Record(access("doc1", i, now.Add(time.Duration(i)*time.Second)))
	}
	if len(tr.window) != 3 {
		t.Fatalf("window len = %d, want 3", len(tr.window))
	}
	if tr.window[0].Range.StartRow != 2 {
		t.Errorf("oldest retained row = %d, want 2 (0,1 evicted)", tr.window[0].Range.StartRow)
	}
}

func TestPredict_PatternStrategyFiresAfterThresholdRepeats(t *testing.T) {
	tr := New(Config{Threshold: 2})
	now := time.Now()

	a := access("doc1", 0, now)
	b := access("doc1", 1, now.Add(time.Second))

	// Repeat the a->b subsequence twice to cross the threshold.
	tr.Record(a)
	tr.Record(b)
	tr.Record(a)
	tr.Record(b)

	preds := tr.Predict(a, false)
	found := false
	for _, p := range preds {
		if p.Strategy == "pattern" && p.Range.StartRow == b.Range.StartRow {
			found = true
			if p.Confidence <= 0 {
				t.Errorf("expected positive confidence, got %v", p.Confidence)
			}
		}
	}
	if !found {
		t.Error("expected a pattern prediction for the repeated a->b subsequence")
	}
}

func TestPredict_NoPatternBelowThreshold(t *testing.T) {
	tr := New(Config{Threshold: 2})
	now := time.Now()
	a := access("doc1", 0, now)
	b := access("doc1", 1, now.Add(time.Second))
	tr.Record(a)
	tr.Record(b)

	preds := tr.Predict(a, false)
	for _, p := range preds {
		if p.Strategy == "pattern" {
			t.Errorf("did not expect a pattern prediction below the threshold, got %+v", p)
		}
	}
}

func TestPredict_AdjacencyGuessesRightAndDownNeighbors(t *testing.T) {
	tr := New(Config{})
	current := Access{
		DocumentID: "doc1", SheetID: "Sheet1",
		Range: rangeref.A1Range{Sheet: "Sheet1", StartRow: 0, StartCol: 0, EndRow: 9, EndCol: 4},
	}
	preds := tr.Predict(current, false)

	var right, down bool
	for _, p := range preds {
		if p.Strategy != "adjacency" {
			continue
		}
		if p.Range.StartCol == 5 && p.Range.StartRow == 0 {
			right = true
		}
		if p.Range.StartRow == 10 && p.Range.StartCol == 0 {
			down = true
		}
	}
	if !right || !down {
		t.Errorf("expected both a right and a down neighbor prediction, got %+v", preds)
	}
}

func TestPredict_CommonOnlyFiresOnFreshOpen(t *testing.T) {
	tr := New(Config{})
	current := access("doc1", 5, time.Now())

	withoutOpen := tr.Predict(current, false)
	for _, p := range withoutOpen {
		if p.Strategy == "common" {
			t.Error("did not expect a common-open prediction when freshOpen is false")
		}
	}

	withOpen := tr.Predict(current, true)
	found := false
	for _, p := range withOpen {
		if p.Strategy == "common" {
			found = true
		}
	}
	if !found {
		t.Error("expected a common-open prediction when freshOpen is true")
	}
}

func TestEvictStalePatterns_DropsPatternsPastTTL(t *testing.T) {
	tr := New(Config{Threshold: 2, PatternTTL: time.Minute})
	base := time.Now()
	a := access("doc1", 0, base)
	b := access("doc1", 1, base.Add(time.Second))
	tr.Record(a)
	tr.Record(b)
	tr.Record(a)
	tr.Record(b)

	if len(tr.patterns) == 0 {
		t.Fatal("expected at least one pattern to have been recorded")
	}

	// A far-future access sweeps every existing pattern past its TTL.
	tr.Record(access("doc1", 99, base.Add(time.Hour)))

	for _, p := range tr.patterns {
		if p.LastSeen.Before(base.Add(time.Hour).Add(-time.Minute)) {
			t.Errorf("expected stale pattern to be evicted, found %+v", p)
		}
	}
}
