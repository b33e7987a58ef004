// Package merger implements the request merger: reads against
// one document with identical render options, arriving within a small time
// window, are collected and coalesced into the minimum bounding A1 ranges
// per sheet before a single remote call is issued. Each requester's slice
// of the merged response is computed from rangeref's row/column math.
//
// The merge window never delays a request past its deadline — a request
// with a deadline shorter than the configured window forces its batch to
// fire early.
package merger
