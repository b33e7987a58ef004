package resilience

import "errors"

// ErrRateLimitExceeded is returned when a token-bucket limiter has no
// tokens available and the caller declined to wait for one.
var ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")
