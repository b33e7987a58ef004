// Package auth provides the RBAC and document-scoping checks that run
// before dispatch.
//
// The core never mints, refreshes, or validates credentials — it consumes an
// opaque capability (scopes, subject, native client) produced by an
// out-of-scope auth subsystem and turns it into an Identity for role-based
// authorization. Roles are built-in (admin, editor, viewer, analyst,
// collaborator) with allow/deny/inherit at tool-, action-, and
// resource-level; denies override allows and unmatched requests are denied
// by default.
//
// Tool-level RBAC (SimpleRBACAuthorizer) and per-document scoping
// (DocumentScopeAuthorizer) are independent checks composed with
// ChainAuthorizer: an identity can hold a role that permits a tool
// everywhere, while still being restricted to the specific documents its
// permissions name.
package auth
