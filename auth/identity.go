package auth

import "time"

// Identity represents an authenticated principal as seen by the core's RBAC
// check. It is derived from a Capability handed to the core by the
// out-of-scope auth subsystem — the core never mints or validates it.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, email, service account).
	Principal string

	// TenantID is the tenant this identity belongs to (multi-tenancy).
	TenantID string

	// Roles are the roles assigned to this identity (admin, editor, viewer,
	// analyst, collaborator, or caller-defined extensions).
	Roles []string

	// Permissions are explicit permission strings granted to this identity,
	// independent of role membership.
	Permissions []string

	// Scopes are the raw OAuth-style scopes carried by the capability this
	// identity was derived from.
	Scopes []string

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission checks if the identity has a specific permission.
func (id *Identity) HasPermission(perm string) bool {
	for _, p := range id.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasScope checks if the identity was granted a specific scope.
func (id *Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// IsAnonymous returns true if this identity carries no principal.
func (id *Identity) IsAnonymous() bool {
	return id.Principal == ""
}

// AnonymousIdentity returns an identity with no principal, roles, or scopes.
func AnonymousIdentity() *Identity {
	return &Identity{}
}

// Capability is the opaque, scoped authorization handed to the core by the
// (out-of-scope) auth subsystem: {scopes, subject, nativeClient}. The core
// never refreshes or mints it; it only reads Scopes/Subject to build an
// Identity for the RBAC check and threads NativeClient down to the remote
// client abstraction that needs to authenticate outbound calls.
type Capability struct {
	// Subject is the principal this capability was issued to.
	Subject string

	// TenantID is the tenant the capability is scoped to, if any.
	TenantID string

	// Scopes are the granted OAuth-style scopes.
	Scopes []string

	// Roles is an optional pre-resolved set of RBAC roles for Subject. When
	// empty, the embedding service is expected to resolve roles externally
	// and populate this before handing the capability to the core.
	Roles []string

	// NativeClient is the already-authenticated client object for the
	// remote spreadsheet API (opaque to the core; passed through to
	// remote.Client implementations).
	NativeClient any

	// ExpiresAt is when the capability expires, if bounded.
	ExpiresAt time.Time
}

// ToIdentity derives an Identity for RBAC evaluation from this capability.
func (c *Capability) ToIdentity() *Identity {
	if c == nil {
		return AnonymousIdentity()
	}
	return &Identity{
		Principal: c.Subject,
		TenantID:  c.TenantID,
		Roles:     append([]string(nil), c.Roles...),
		Scopes:    append([]string(nil), c.Scopes...),
		ExpiresAt: c.ExpiresAt,
	}
}

// IsExpired reports whether the capability has expired.
func (c *Capability) IsExpired() bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// HasScope reports whether the capability carries the given scope.
func (c *Capability) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
