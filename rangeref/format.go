package rangeref

import (
	"strconv"
	"strings"
)

// Format renders a range back into A1 notation. It is the left inverse of
// ParseA1Range: for any well-formed range string s, ParseA1Range(s) followed
// by Format round-trips to a canonical form that re-parses to the same
// A1Range.
func (r A1Range) Format() string {
	var body string
	switch {
	case r.IsWholeColumn() && r.IsWholeRow():
		// Degenerate whole-sheet range; render as the first cell's column
		// through itself is meaningless, so fall back to a bounded A1
		// representation of the single corner cell extended both ways is not
		// expressible — render using row 1 sentinel semantics instead.
		body = formatColumn(r.StartCol) + ":" + formatColumn(r.EndCol)
	case r.IsWholeColumn():
		start, end := formatColumn(r.StartCol), formatColumn(r.EndCol)
		if start == end {
			body = start
		} else {
			body = start + ":" + end
		}
	case r.IsWholeRow():
		start, end := formatRow(r.StartRow), formatRow(r.EndRow)
		if start == end {
			body = start
		} else {
			body = start + ":" + end
		}
	case r.IsSingleCell():
		body = formatCell(r.StartRow, r.StartCol)
	default:
		body = formatCell(r.StartRow, r.StartCol) + ":" + formatCell(r.EndRow, r.EndCol)
	}

	if r.Sheet == "" {
		return body
	}
	return quoteSheet(r.Sheet) + "!" + body
}

func formatCell(row, col int64) string {
	return IndexToColumn(col) + formatRow(row)
}

func formatColumn(col int64) string {
	return IndexToColumn(col)
}

func formatRow(row int64) string {
	return strconv.FormatInt(row+1, 10)
}

// quoteSheet wraps a sheet name in single quotes, per A1 convention, when it
// contains characters that would otherwise be ambiguous (spaces, "!", "'").
func quoteSheet(sheet string) string {
	if !needsQuoting(sheet) {
		return sheet
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func needsQuoting(sheet string) bool {
	for i := 0; i < len(sheet); i++ {
		c := sheet[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			continue
		default:
			return true
		}
	}
	return sheet == ""
}

// String implements fmt.Stringer for use in logging and error messages.
func (r A1Range) String() string {
	return r.Format()
}
