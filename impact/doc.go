// Package impact implements the dependency graph and impact analyzer: a
// directed graph of cell-to-cell formula references, built
// lazily per document and cached by (documentId, revisionToken), and an
// analyzer that scores the blast radius of a proposed mutation against
// that graph plus the document's charts, pivots, named ranges, and
// protected ranges.
//
// Cycle detection uses an explicit white/gray/black DFS coloring rather
// than naive recursion on already-visited nodes, so traversal terminates
// on cyclic input instead of looping or re-deriving a result it already
// has.
package impact
