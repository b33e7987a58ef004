// Package task implements the task store: long-running tool
// invocations tracked through an explicit status machine (working,
// input_required, completed, failed, cancelled), with per-task mutex
// protection, cursor-paged listing newest-first, and cooperative
// cancellation via a closed-channel signal that handlers poll or select on.
package task
