package impact

import (
	"regexp"

	"github.com/sheetmcp/sheetcore/rangeref"
)

// refPattern matches A1-style cell/range tokens, optionally sheet-qualified,
// as they appear inside formula text (e.g. "A1", "Sheet2!B2:C10", "$A$1").
var refPattern = regexp.MustCompile(`(?:'[^']+'|[A-Za-z_][A-Za-z0-9_]*)?!?\$?[A-Za-z]{1,3}\$?[0-9]+(?::\$?[A-Za-z]{1,3}\$?[0-9]+)?`)

// extractReferences returns every A1 range a formula references, resolved
// against defaultSheet when the token carries no sheet prefix. Tokens that
// fail to parse (function names that happen to look cell-like, e.g. "E2"
// inside "TRUE2" never matches due to the leading-digit requirement, but
// malformed fragments can still slip through) are silently skipped — a
// formula reference extractor is best-effort, not a formula parser.
func extractReferences(formula, defaultSheet string) []rangeref.A1Range {
	matches := refPattern.FindAllString(formula, -1)
	var refs []rangeref.A1Range
	for _, m := range matches {
		r, err := rangeref.ParseA1Range(m)
		if err != nil {
			continue
		}
		if r.Sheet == "" {
			r.Sheet = defaultSheet
		}
		refs = append(refs, r)
	}
	return refs
}
