package impact

import (
	"context"
	"fmt"
	"sync"

	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
)

// CellRef identifies a single cell.
type CellRef struct {
	Sheet string
	Row   int64
	Col   int64
}

func (c CellRef) key() string { return fmt.Sprintf("%s!%d:%d", c.Sheet, c.Row, c.Col) }

func (c CellRef) asRange() rangeref.A1Range {
	return rangeref.A1Range{Sheet: c.Sheet, StartRow: c.Row, StartCol: c.Col, EndRow: c.Row, EndCol: c.Col}
}

// Cycle is a closed chain of cell references discovered during DFS.
type Cycle []CellRef

// DependencyGraph is a directed graph of CellRef -> {CellRef it references}.
// Nodes are cells that hold formulas; edges point at every cell the
// formula's references resolve to. Cycles are detected once at build time
// and recorded separately rather than traversed repeatedly.
type DependencyGraph struct {
	DocumentID    string
	RevisionToken string

	edges  map[string][]CellRef
	nodes  map[string]CellRef
	Cycles []Cycle
}

// Dependents returns every cell with a formula referencing target (a
// "direct dependent").
func (g *DependencyGraph) Dependents(target rangeref.A1Range) []CellRef {
	var out []CellRef
	for key, refs := range g.edges {
		for _, ref := range refs {
			if rangeref.Overlaps(ref.asRange(), target) {
				out = append(out, g.nodes[key])
				break
			}
		}
	}
	return out
}

// TransitiveAffected returns the closure of cells reachable by repeatedly
// walking Dependents from direct, stopping at nodes already visited so
// cycles cannot cause non-termination.
func (g *DependencyGraph) TransitiveAffected(direct []CellRef) []CellRef {
	visited := make(map[string]bool, len(direct))
	var frontier []CellRef
	for _, c := range direct {
		if !visited[c.key()] {
			visited[c.key()] = true
			frontier = append(frontier, c)
		}
	}

	var all []CellRef
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		all = append(all, next)

		for _, dep := range g.Dependents(next.asRange()) {
			k := dep.key()
			if !visited[k] {
				visited[k] = true
				frontier = append(frontier, dep)
			}
		}
	}
	return all
}

// color marks a node's DFS state for cycle detection.
type color int

const (
	white color = iota // unvisited
	gray                // on the current recursion stack
	black               // fully explored
)

// BuildGraph fetches every sheet's formulas via one metadata call and
// constructs the dependency graph plus its cycle list, built lazily per
// document from a single bulk fetch.
func BuildGraph(ctx context.Context, client remote.Client, doc remote.DocumentHandle) (*DependencyGraph, error) {
	md, err := client.GetMetadata(ctx, doc, []string{"sheets.formulas", "revisionToken"})
	if err != nil {
		return nil, err
	}

	g := &DependencyGraph{
		DocumentID:    md.DocumentID,
		RevisionToken: md.RevisionToken,
		edges:         make(map[string][]CellRef),
		nodes:         make(map[string]CellRef),
	}

	for _, sheet := range md.Sheets {
		for cellA1, formula := range sheet.Formulas {
			r, err := rangeref.ParseA1Range(cellA1)
			if err != nil {
				continue
			}
			if r.Sheet == "" {
				r.Sheet = sheet.Title
			}
			cell := CellRef{Sheet: r.Sheet, Row: r.StartRow, Col: r.StartCol}
			refs := extractReferences(formula, sheet.Title)

			var targets []CellRef
			for _, ref := range refs {
				targets = append(targets, rangeToCells(ref)...)
			}
			g.nodes[cell.key()] = cell
			g.edges[cell.key()] = targets
			for _, t := range targets {
				g.nodes[t.key()] = t
			}
		}
	}

	g.Cycles = detectCycles(g)
	return g, nil
}

// rangeToCells expands a bounded range reference into its constituent
// cells. Unbounded (whole-row/column) references are represented by their
// origin cell only — expanding a whole column to every row would make the
// graph unboundedly large for no analytical benefit.
func rangeToCells(r rangeref.A1Range) []CellRef {
	endRow, endCol := r.EndRow, r.EndCol
	if endRow == rangeref.Unbounded {
		endRow = r.StartRow
	}
	if endCol == rangeref.Unbounded {
		endCol = r.StartCol
	}
	const maxExpand = 1000
	var cells []CellRef
	for row := r.StartRow; row <= endRow; row++ {
		for col := r.StartCol; col <= endCol; col++ {
			cells = append(cells, CellRef{Sheet: r.Sheet, Row: row, Col: col})
			if len(cells) >= maxExpand {
				return cells
			}
		}
	}
	return cells
}

// detectCycles runs an explicit white/gray/black DFS over the graph,
// recording each cycle found rather than recursing into nodes already on
// the stack — recursing into an already-visited (gray) node without using
// the result it would produce is exactly how naive cycle detection hangs.
func detectCycles(g *DependencyGraph) []Cycle {
	colors := make(map[string]color, len(g.nodes))
	for k := range g.nodes {
		colors[k] = white
	}

	var cycles []Cycle
	var stack []CellRef

	var visit func(key string)
	visit = func(key string) {
		colors[key] = gray
		stack = append(stack, g.nodes[key])

		for _, next := range g.edges[key] {
			nk := next.key()
			switch colors[nk] {
			case white:
				visit(nk)
			case gray:
				cycles = append(cycles, extractCycle(stack, next))
			case black:
				// already fully explored, no new information
			}
		}

		stack = stack[:len(stack)-1]
		colors[key] = black
	}

	for k := range g.nodes {
		if colors[k] == white {
			visit(k)
		}
	}
	return cycles
}

// extractCycle slices stack from the first occurrence of target to its
// end, producing the closed chain that triggered a gray-node revisit.
func extractCycle(stack []CellRef, target CellRef) Cycle {
	for i, c := range stack {
		if c.key() == target.key() {
			cycle := append(Cycle(nil), stack[i:]...)
			return append(cycle, target)
		}
	}
	return Cycle{target}
}

// GraphCache holds one DependencyGraph per (documentId, revisionToken),
// copy-on-update so concurrent readers never see a partially built graph.
type GraphCache struct {
	client remote.Client

	mu    sync.Mutex
	byKey map[string]*DependencyGraph
}

// NewGraphCache constructs a GraphCache backed by client.
func NewGraphCache(client remote.Client) *GraphCache {
	return &GraphCache{client: client, byKey: make(map[string]*DependencyGraph)}
}

// Get returns the cached graph for doc if its revision token still
// matches, otherwise builds and caches a fresh one.
func (c *GraphCache) Get(ctx context.Context, doc remote.DocumentHandle) (*DependencyGraph, error) {
	md, err := c.client.GetMetadata(ctx, doc, []string{"revisionToken"})
	if err != nil {
		return nil, err
	}

	cacheKey := string(doc) + "@" + md.RevisionToken
	c.mu.Lock()
	if g, ok := c.byKey[cacheKey]; ok {
		c.mu.Unlock()
		return g, nil
	}
	c.mu.Unlock()

	g, err := BuildGraph(ctx, c.client, doc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.byKey[cacheKey] = g
	c.mu.Unlock()
	return g, nil
}
