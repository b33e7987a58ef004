// Package snapshot implements the snapshot service: point in
// time capture of a document, usable to restore state after a failed
// transaction. A metadata snapshot captures structure and formulas only; a
// full snapshot exports the entire document to cold storage and is bounded
// by a configurable size limit. Snapshots are garbage-collected once their
// TTL has elapsed and no transaction holds them; releasing a hold does not
// delete a snapshot before its TTL.
package snapshot
