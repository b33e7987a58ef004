package impact

import (
	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
)

// Severity classifies how disruptive a proposed mutation is likely to be.
type Severity string

const (
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

// DirectScope is the raw size of the operation's target.
type DirectScope struct {
	Rows   int64
	Cols   int64
	Cells  int64
	Sheets int
}

// AffectedArtifacts tallies how many of each artifact kind overlap the
// target range.
type AffectedArtifacts struct {
	Formulas        int
	Charts          int
	Pivots          int
	Validations     int
	NamedRanges     int
	ProtectedRanges int
}

func (a AffectedArtifacts) total() int {
	return a.Formulas + a.Charts + a.Pivots + a.Validations + a.NamedRanges + a.ProtectedRanges
}

// Analysis is the result of analyzing one proposed mutation against a
// DependencyGraph and document metadata.
type Analysis struct {
	TargetRange          rangeref.A1Range
	Direct               DirectScope
	DirectDependents     []CellRef
	TransitiveAffected   []CellRef
	AffectedArtifacts    AffectedArtifacts
	Severity             Severity
	CanProceed           bool
	RequiresConfirmation bool
	Recommendations      []string
}

// Analyze computes the blast radius of applying a mutation of kind against
// target in four steps: direct scope, direct/transitive dependents,
// artifact overlap, then severity scoring. The core never blocks on its own
// judgment — CanProceed is always true; RequiresConfirmation signals the
// tool layer should elicit confirmation before dispatch, and must not be
// silently downgraded.
func Analyze(graph *DependencyGraph, target rangeref.A1Range, metadata remote.DocumentMetadata, kind mutation.Kind) Analysis {
	direct := directScope(target, metadata)

	dependents := graph.Dependents(target)
	transitive := graph.TransitiveAffected(dependents)

	artifacts := AffectedArtifacts{Formulas: len(dependents)}
	protectedTouched := false
	for _, sheet := range metadata.Sheets {
		for _, chart := range sheet.Charts {
			if overlapsArtifact(chart, target) {
				artifacts.Charts++
			}
		}
		for _, pivot := range sheet.Pivots {
			if overlapsArtifact(pivot, target) {
				artifacts.Pivots++
			}
		}
	}
	for _, nr := range metadata.NamedRanges {
		if overlapsArtifact(nr, target) {
			artifacts.NamedRanges++
		}
	}
	for _, pr := range metadata.ProtectedRanges {
		if overlapsArtifact(pr, target) {
			artifacts.ProtectedRanges++
			protectedTouched = true
		}
	}

	severity := classify(protectedTouched, len(dependents), kind, artifacts)
	requiresConfirmation := severity == High || severity == Critical

	var recs []string
	if requiresConfirmation {
		recs = append(recs, "create a snapshot before proceeding")
	}
	if fraction := sheetFraction(target, metadata); fraction > 0.5 {
		recs = append(recs, "narrow the range — it covers most of the sheet")
	}

	return Analysis{
		TargetRange:          target,
		Direct:               direct,
		DirectDependents:     dependents,
		TransitiveAffected:   transitive,
		AffectedArtifacts:    artifacts,
		Severity:             severity,
		CanProceed:           true,
		RequiresConfirmation: requiresConfirmation,
		Recommendations:      recs,
	}
}

func classify(protectedTouched bool, brokenFormulas int, kind mutation.Kind, artifacts AffectedArtifacts) Severity {
	if protectedTouched || brokenFormulas >= 1000 {
		return Critical
	}
	if isStructuralKind(kind) && brokenFormulas > 0 {
		return High
	}
	if artifacts.total() >= 10 {
		return Medium
	}
	return Low
}

func isStructuralKind(kind mutation.Kind) bool {
	switch kind {
	case mutation.DeleteDimension, mutation.InsertDimension, mutation.DeleteSheet, mutation.AddSheet, mutation.CopySheet:
		return true
	default:
		return false
	}
}

func directScope(target rangeref.A1Range, metadata remote.DocumentMetadata) DirectScope {
	sheets := 0
	for _, s := range metadata.Sheets {
		if s.Title == target.Sheet {
			sheets = 1
			break
		}
	}
	return DirectScope{Rows: target.Rows(), Cols: target.Cols(), Cells: target.CellCount(), Sheets: sheets}
}

func sheetFraction(target rangeref.A1Range, metadata remote.DocumentMetadata) float64 {
	for _, s := range metadata.Sheets {
		if s.Title != target.Sheet || s.RowCount == 0 || s.ColCount == 0 {
			continue
		}
		cells := target.CellCount()
		if cells == rangeref.Unbounded {
			return 1.0
		}
		total := float64(s.RowCount * s.ColCount)
		if total == 0 {
			return 0
		}
		return float64(cells) / total
	}
	return 0
}

// overlapsArtifact looks for a "range" string field on a generic artifact
// map (chart/pivot/named-range/protected-range) and reports whether it
// overlaps target. Artifacts with no parseable range are treated as
// non-overlapping rather than erroring — metadata shape varies across
// artifact kinds and a best-effort overlap check must not fail the whole
// analysis over one malformed entry.
func overlapsArtifact(artifact map[string]any, target rangeref.A1Range) bool {
	raw, ok := artifact["range"].(string)
	if !ok {
		return false
	}
	r, err := rangeref.ParseA1Range(raw)
	if err != nil {
		return false
	}
	if r.Sheet == "" {
		r.Sheet = target.Sheet
	}
	return rangeref.Overlaps(r, target)
}
