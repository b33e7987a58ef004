// Package session implements Session: a capability-scoped
// handle bundling a task.Store and an event.Store, capped at 10 concurrent
// sessions per user with oldest-first eviction once the 11th is created.
package session
