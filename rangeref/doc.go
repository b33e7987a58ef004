// Package rangeref implements A1-notation spreadsheet range parsing and the
// overlap/adjacency/merge math that the request merger, the impact analyzer,
// and the batch compiler all build on.
//
// Ranges are represented as four coordinates (StartRow, StartCol, EndRow,
// EndCol), zero-based and inclusive, scoped to a sheet name. Only the end of
// an axis may be unbounded (whole-row / whole-column ranges); unbounded ends
// are represented by Unbounded and sort after every bounded value.
package rangeref
