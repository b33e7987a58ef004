package prefetch

import (
	"github.com/sheetmcp/sheetcore/rangeref"
)

// Prediction is a speculative future access worth prefetching.
type Prediction struct {
	DocumentID string
	SheetID    string
	Range      rangeref.A1Range
	Confidence float64
	Strategy   string // "pattern", "adjacency", or "common"
}

const (
	adjacencyRightConfidence = 0.6
	adjacencyDownConfidence  = 0.5
	commonOpenConfidence     = 0.7
)

// Predict combines the pattern, adjacency, and common-open strategies
// for the access that just happened. freshOpen marks a
// just-opened document, which additionally triggers the common strategy.
// Predict never errors — a strategy that can't produce a guess is simply
// omitted.
func (t *Tracker) Predict(current Access, freshOpen bool) []Prediction {
	var out []Prediction

	out = append(out, t.predictFromPatterns(current)...)
	out = append(out, predictAdjacency(current)...)
	if freshOpen {
		out = append(out, predictCommon(current)...)
	}
	return out
}

func (t *Tracker) predictFromPatterns(current Access) []Prediction {
	t.mu.Lock()
	defer t.mu.Unlock()

	var preds []Prediction
	seen := make(map[string]bool)

	tryPrefix := func(prefix []string) {
		for _, p := range t.patterns {
			if p.Frequency < t.cfg.Threshold || len(p.Prefix) != len(prefix) {
				continue
			}
			if !equalPrefix(p.Prefix, prefix) {
				continue
			}
			key := p.Next.key()
			if seen[key] {
				continue
			}
			seen[key] = true
			preds = append(preds, Prediction{
				DocumentID: p.Next.DocumentID,
				SheetID:    p.Next.SheetID,
				Range:      p.Next.Range,
				Confidence: p.Confidence,
				Strategy:   "pattern",
			})
		}
	}

	if len(t.window) >= 2 {
		tryPrefix([]string{t.window[len(t.window)-2].key(), current.key()})
	}
	tryPrefix([]string{current.key()})

	return preds
}

func equalPrefix(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// predictAdjacency guesses the next horizontal and vertical neighbor of
// the current range, each shifted by the range's own width/height.
func predictAdjacency(current Access) []Prediction {
	r := current.Range
	width := r.Cols()
	height := r.Rows()
	if width <= 0 || height <= 0 {
		return nil
	}

	right := r
	right.StartCol += width
	right.EndCol += width

	down := r
	down.StartRow += height
	down.EndRow += height

	return []Prediction{
		{DocumentID: current.DocumentID, SheetID: current.SheetID, Range: right, Confidence: adjacencyRightConfidence, Strategy: "adjacency"},
		{DocumentID: current.DocumentID, SheetID: current.SheetID, Range: down, Confidence: adjacencyDownConfidence, Strategy: "adjacency"},
	}
}

// predictCommon guesses a small top-left window on a fresh document open.
func predictCommon(current Access) []Prediction {
	return []Prediction{{
		DocumentID: current.DocumentID,
		SheetID:    current.SheetID,
		Range:      rangeref.A1Range{Sheet: current.Range.Sheet, StartRow: 0, StartCol: 0, EndRow: 19, EndCol: 9},
		Confidence: commonOpenConfidence,
		Strategy:   "common",
	}}
}
