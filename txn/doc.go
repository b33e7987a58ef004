// Package txn implements the transaction manager: multi-
// operation atomicity over a document, with an explicit state machine
// (pending → queued → executing → {committed, rolled_back, failed}),
// optional auto-snapshot-before-commit and auto-rollback-on-failure, a
// global concurrency cap, and a per-transaction deadline enforced by a
// background reaper.
package txn
