// Package prefetch implements the access-pattern tracker and predictor: a
// bounded sliding window of recent accesses drives three
// combined prediction strategies (pattern, adjacency, common-open), whose
// output feeds the merger speculatively. Predictions never block a real
// request and prediction errors are swallowed — a bad guess costs an
// extra read, never a failed tool call.
package prefetch
