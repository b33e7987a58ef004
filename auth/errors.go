package auth

import "errors"

// Sentinel errors for authorization and capability handling.
var (
	// ErrForbidden is returned when no role/permission permits the action.
	ErrForbidden = errors.New("auth: access denied")

	// ErrCapabilityExpired is returned when a capability's ExpiresAt has passed.
	ErrCapabilityExpired = errors.New("auth: capability expired")

	// ErrNoCapability is returned when an authorization request carries no
	// identity at all (no capability was ever attached to the context).
	ErrNoCapability = errors.New("auth: no capability provided")
)
