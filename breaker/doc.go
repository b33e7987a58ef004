// Package breaker implements a keyed circuit breaker registry: one breaker
// per remote endpoint, transitioning closed -> open -> half_open -> closed,
// with a configurable successThreshold of consecutive probe successes
// required to close back out of half_open (rather than a single probe
// success), so a flaky endpoint can't flap the circuit shut prematurely.
package breaker
