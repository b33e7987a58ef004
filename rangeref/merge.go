package rangeref

// Merge returns the smallest range that covers both a and b. It is only
// meaningful when a and b share a sheet, overlap, or are Adjacent; callers
// that want to merge arbitrary ranges unconditionally should use
// BoundingBox instead and accept that the result may cover cells belonging
// to neither input.
func Merge(a, b A1Range) A1Range {
	r := A1Range{
		Sheet:    a.Sheet,
		StartRow: minInt(a.StartRow, b.StartRow),
		StartCol: minInt(a.StartCol, b.StartCol),
		EndRow:   maxUnboundedEnd(a.EndRow, b.EndRow),
		EndCol:   maxUnboundedEnd(a.EndCol, b.EndCol),
	}
	return r
}

// maxUnboundedEnd returns the larger of two end coordinates, with Unbounded
// treated as larger than any bounded value.
func maxUnboundedEnd(a, b int64) int64 {
	if a == Unbounded || b == Unbounded {
		return Unbounded
	}
	return maxInt(a, b)
}

// BoundingBox returns the smallest range, per sheet, that covers every
// range in rs. Ranges on different sheets produce independent boxes; the
// result is grouped by sheet name and returned in first-seen order.
func BoundingBox(rs []A1Range) []A1Range {
	if len(rs) == 0 {
		return nil
	}

	order := make([]string, 0, len(rs))
	boxes := make(map[string]A1Range, len(rs))
	for _, r := range rs {
		box, ok := boxes[r.Sheet]
		if !ok {
			order = append(order, r.Sheet)
			boxes[r.Sheet] = r
			continue
		}
		boxes[r.Sheet] = Merge(box, r)
	}

	out := make([]A1Range, 0, len(order))
	for _, sheet := range order {
		out = append(out, boxes[sheet])
	}
	return out
}

// MergeAll greedily fuses overlapping and edge-adjacent ranges into their
// bounding boxes until no further merge applies, then returns the
// remaining disjoint set. This is the coalescing pass the request merger
// runs over a window of pending reads before dispatch: ranges that touch
// end-to-end collapse into one request instead of two.
//
// The result order is not significant; callers that need stability should
// sort it themselves.
func MergeAll(rs []A1Range) []A1Range {
	if len(rs) == 0 {
		return nil
	}

	current := append([]A1Range(nil), rs...)
	for {
		merged, changed := mergeOnePass(current)
		current = merged
		if !changed {
			return current
		}
	}
}

func mergeOnePass(rs []A1Range) ([]A1Range, bool) {
	used := make([]bool, len(rs))
	out := make([]A1Range, 0, len(rs))
	changed := false

	for i := range rs {
		if used[i] {
			continue
		}
		acc := rs[i]
		used[i] = true

		for j := i + 1; j < len(rs); j++ {
			if used[j] {
				continue
			}
			if Overlaps(acc, rs[j]) || Adjacent(acc, rs[j]) {
				acc = Merge(acc, rs[j])
				used[j] = true
				changed = true
			}
		}
		out = append(out, acc)
	}
	return out, changed
}
