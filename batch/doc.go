// Package batch implements the batch compiler and dispatcher: it groups an
// ordered sequence of mutations into the minimum number of
// remote calls that realize them, dispatches compiled calls serially per
// document but in parallel across documents, and optionally verifies
// mutations marked for post-dispatch re-read.
package batch
