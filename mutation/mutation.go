package mutation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sheetmcp/sheetcore/rangeref"
)

// Kind discriminates the Mutation tagged union.
type Kind string

const (
	UpdateValues    Kind = "update_values"
	AppendValues    Kind = "append_values"
	ClearRange      Kind = "clear_range"
	AddSheet        Kind = "add_sheet"
	DeleteSheet     Kind = "delete_sheet"
	CopySheet       Kind = "copy_sheet"
	FormatCells     Kind = "format_cells"
	InsertDimension Kind = "insert_dimension"
	DeleteDimension Kind = "delete_dimension"
	AddChart        Kind = "add_chart"
	UpdateChart     Kind = "update_chart"
	DeleteChart     Kind = "delete_chart"
	AddPivot        Kind = "add_pivot"
	AddNamedRange   Kind = "add_named_range"
)

// ValueInputMode controls how the remote API interprets literal values
// (e.g. whether "=SUM(A1:A2)" is parsed as a formula or kept as a string).
type ValueInputMode string

const (
	InputRaw         ValueInputMode = "raw"
	InputUserEntered ValueInputMode = "user_entered"
)

// Axis names a dimension for insert/delete-dimension mutations.
type Axis string

const (
	AxisRows Axis = "rows"
	AxisCols Axis = "columns"
)

// structuralKinds touch sheet/document structure rather than cell values;
// the batch compiler must keep any mutation depending on one of these in
// the same compiled batch.
var structuralKinds = map[Kind]bool{
	AddSheet:        true,
	DeleteSheet:     true,
	CopySheet:       true,
	InsertDimension: true,
	DeleteDimension: true,
}

// riskyKinds are destructive enough that an auto-snapshot transaction must
// capture state before applying them.
var riskyKinds = map[Kind]bool{
	ClearRange:      true,
	DeleteSheet:     true,
	DeleteDimension: true,
	DeleteChart:     true,
}

// nonBatchableKinds become singleton remote calls even when adjacent in
// submission order (e.g. a sheet copy can't be folded into a batch-values
// call).
var nonBatchableKinds = map[Kind]bool{
	CopySheet: true,
}

// Mutation is a single tagged-union spreadsheet operation. Only the fields
// relevant to Kind are populated; the package provides no Kind-specific
// constructors, so callers build a Mutation as a struct literal.
type Mutation struct {
	Kind Kind

	// Target range, when the mutation addresses one (UpdateValues,
	// AppendValues, ClearRange, FormatCells, AddNamedRange).
	Range *rangeref.A1Range

	// Cell payload for UpdateValues/AppendValues.
	Values         [][]any
	ValueInputMode ValueInputMode

	// FormatCells.
	FormatSpec map[string]any
	FieldMask  []string

	// AddSheet/DeleteSheet/CopySheet.
	SheetProps  map[string]any
	SheetID     int64
	SourceDocID string

	// InsertDimension/DeleteDimension.
	Sheet      string
	DimAxis    Axis
	DimStart   int64
	DimEnd     int64

	// AddChart/UpdateChart/DeleteChart, AddPivot, AddNamedRange.
	ChartID    int64
	ChartSpec  map[string]any
	PivotSpec  map[string]any
	NamedRange map[string]any

	// Verify requests a post-dispatch re-read to confirm the mutation took
	// effect.
	Verify bool
}

// IsStructural reports whether m changes sheet/document structure rather
// than cell contents.
func (m Mutation) IsStructural() bool { return structuralKinds[m.Kind] }

// IsRisky reports whether m should force a snapshot under an
// auto-snapshotting transaction.
func (m Mutation) IsRisky() bool { return riskyKinds[m.Kind] }

// IsBatchable reports whether m may be grouped with other mutations into
// one remote call.
func (m Mutation) IsBatchable() bool { return !nonBatchableKinds[m.Kind] }

// TargetSheet returns the sheet name m addresses, for mutations that have
// one, and "" otherwise.
func (m Mutation) TargetSheet() string {
	if m.Range != nil {
		return m.Range.Sheet
	}
	return m.Sheet
}

// OperationKey returns a canonicalized, deterministic key identifying this
// mutation for deduplication and batch-grouping purposes. The key is built
// from sorted, normalized fields rather than a raw JSON dump of the
// struct, so semantically identical mutations
// submitted with different map key orders or incidental whitespace collapse
// to the same key.
func (m Mutation) OperationKey() string {
	var b strings.Builder
	b.WriteString(string(m.Kind))
	b.WriteByte('|')
	if m.Range != nil {
		b.WriteString(m.Range.Format())
	} else {
		b.WriteString(m.Sheet)
	}
	b.WriteByte('|')

	switch m.Kind {
	case UpdateValues, AppendValues:
		b.WriteString(string(m.ValueInputMode))
		b.WriteByte('|')
		b.WriteString(canonicalJSON(m.Values))
	case FormatCells:
		b.WriteString(canonicalJSON(m.FormatSpec))
		b.WriteByte('|')
		b.WriteString(canonicalFieldMask(m.FieldMask))
	case AddSheet, CopySheet:
		b.WriteString(canonicalJSON(m.SheetProps))
		fmt.Fprintf(&b, "|%d|%s", m.SheetID, m.SourceDocID)
	case DeleteSheet:
		fmt.Fprintf(&b, "%d", m.SheetID)
	case InsertDimension, DeleteDimension:
		fmt.Fprintf(&b, "%s|%d|%d", m.DimAxis, m.DimStart, m.DimEnd)
	case AddChart, UpdateChart:
		fmt.Fprintf(&b, "%d|%s", m.ChartID, canonicalJSON(m.ChartSpec))
	case DeleteChart:
		fmt.Fprintf(&b, "%d", m.ChartID)
	case AddPivot:
		b.WriteString(canonicalJSON(m.PivotSpec))
	case AddNamedRange:
		b.WriteString(canonicalJSON(m.NamedRange))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return string(m.Kind) + ":" + hex.EncodeToString(sum[:])[:16]
}

// canonicalJSON serializes v through a sort-keys JSON round trip so that
// two structurally equal maps always produce the same string regardless of
// Go map iteration order, and collapses incidental whitespace.
func canonicalJSON(v any) string {
	if v == nil {
		return "null"
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return string(raw)
	}
	sorted, err := json.Marshal(generic)
	if err != nil {
		return string(raw)
	}
	return string(sorted)
}

func canonicalFieldMask(mask []string) string {
	if len(mask) == 0 {
		return ""
	}
	sorted := append([]string(nil), mask...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
