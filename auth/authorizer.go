package auth

import (
	"context"
	"fmt"
	"strings"
)

// Authorizer determines if an identity is allowed to perform an action.
type Authorizer interface {
	// Authorize checks if the request is permitted.
	// Returns nil if authorized, or an error (typically *AuthzError) if denied.
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request.
	Subject *Identity

	// Resource is the target resource (e.g., "tool:search_tools").
	Resource string

	// Action is the requested action (e.g., "call", "list").
	Action string

	// ResourceType categorizes the resource (e.g., "tool", "namespace").
	ResourceType string

	// DocumentID is the spreadsheet document the call targets, when the
	// call is scoped to one. DocumentScopeAuthorizer checks it against the
	// identity's document-scoped permissions; other authorizers may ignore
	// it.
	DocumentID string
}

// ToolName extracts the tool name from the resource.
// Removes "tool:" prefix if present.
func (r *AuthzRequest) ToolName() string {
	if name, found := strings.CutPrefix(r.Resource, "tool:"); found {
		return name
	}
	return r.Resource
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	// Subject is the identity that was denied.
	Subject string

	// Resource is the resource that was denied access to.
	Resource string

	// Action is the action that was denied.
	Action string

	// Reason explains why access was denied.
	Reason string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q resource=%q action=%q reason=%q",
		e.Subject, e.Resource, e.Action, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthzError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAllAuthorizer permits all requests.
type AllowAllAuthorizer struct{}

// Authorize always returns nil (permitted).
func (a AllowAllAuthorizer) Authorize(_ context.Context, _ *AuthzRequest) error {
	return nil
}

// Name returns "allow_all".
func (a AllowAllAuthorizer) Name() string {
	return "allow_all"
}

// DenyAllAuthorizer denies all requests.
type DenyAllAuthorizer struct{}

// Authorize always returns an error (denied).
func (a DenyAllAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	subject := ""
	if req.Subject != nil {
		subject = req.Subject.Principal
	}
	return &AuthzError{
		Subject:  subject,
		Resource: req.Resource,
		Action:   req.Action,
		Reason:   "all requests denied",
	}
}

// Name returns "deny_all".
func (a DenyAllAuthorizer) Name() string {
	return "deny_all"
}

// DocumentScopeAuthorizer grants access only to documents an identity has
// been explicitly scoped to, independent of whatever tool-level role
// permits the call. An identity is permitted against req.DocumentID if its
// Permissions include "document:<id>:<action>" or the wildcard
// "document:*:<action>"; an identity with no document-scoped permissions
// at all (neither form present for any document) is treated as unscoped
// and permitted unconditionally, so this authorizer can be layered on top
// of a tool-level RBAC authorizer without breaking identities that predate
// per-document scoping.
type DocumentScopeAuthorizer struct{}

// Name returns "document_scope".
func (a DocumentScopeAuthorizer) Name() string {
	return "document_scope"
}

// Authorize checks req.DocumentID against the subject's document-scoped
// permissions.
func (a DocumentScopeAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.DocumentID == "" || req.Subject == nil {
		return nil
	}

	scoped := false
	for _, p := range req.Subject.Permissions {
		doc, action, ok := splitDocumentPermission(p)
		if !ok {
			continue
		}
		scoped = true
		if action != req.Action {
			continue
		}
		if doc == "*" || doc == req.DocumentID {
			return nil
		}
	}
	if !scoped {
		return nil
	}

	return &AuthzError{
		Subject:  req.Subject.Principal,
		Resource: req.Resource,
		Action:   req.Action,
		Reason:   fmt.Sprintf("identity is not scoped to document %q", req.DocumentID),
	}
}

// splitDocumentPermission parses a permission string of the form
// "document:<id>:<action>".
func splitDocumentPermission(p string) (doc, action string, ok bool) {
	const prefix = "document:"
	if !strings.HasPrefix(p, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(p, prefix)
	doc, action, found := strings.Cut(rest, ":")
	if !found || doc == "" || action == "" {
		return "", "", false
	}
	return doc, action, true
}

// ChainAuthorizer runs a sequence of Authorizers in order and denies on the
// first one that returns an error, so a deployment can layer tool-level
// RBAC (SimpleRBACAuthorizer) and per-document scoping
// (DocumentScopeAuthorizer) into the single Authorizer toolcall.Deps
// expects.
type ChainAuthorizer []Authorizer

// Authorize runs each authorizer in turn, stopping at the first denial.
func (c ChainAuthorizer) Authorize(ctx context.Context, req *AuthzRequest) error {
	for _, a := range c {
		if err := a.Authorize(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// Name returns "chain".
func (c ChainAuthorizer) Name() string {
	return "chain"
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}
