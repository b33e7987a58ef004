package toolcall

import (
	"github.com/sheetmcp/sheetcore/auth"
	"github.com/sheetmcp/sheetcore/impact"
	"github.com/sheetmcp/sheetcore/mutation"
	"github.com/sheetmcp/sheetcore/rangeref"
	"github.com/sheetmcp/sheetcore/remote"
)

// ReadRequest is the normalized shape of a read-only tool call.
type ReadRequest struct {
	Range   rangeref.A1Range
	Options remote.ReadOptions
}

// Call is the normalized {tool, action, params} triple the pipeline
// operates on (individual tool schemas are parsed into this shape
// upstream). Exactly one of Read or
// Mutations is populated.
type Call struct {
	Tool         string
	Action       string
	ResourceType string // RBAC resource category; defaults to "tool"

	DocumentID remote.DocumentHandle
	Identity   *auth.Identity

	SessionID      string
	RequestID      string
	IdempotencyKey string

	Read      *ReadRequest
	Mutations []mutation.Mutation

	// TransactionID, when set, enlists Mutations into an existing
	// transaction instead of dispatching them immediately.
	TransactionID string

	// RequireImpact runs impact analysis before dispatch/enlist. It is
	// implied automatically for any structural or risky mutation.
	RequireImpact bool

	// AutoConfirm lets a caller that already has out-of-band confirmation
	// proceed past an analysis that would otherwise require one.
	AutoConfirm bool
}

// Result is the pipeline's normalized response, assembled in the response
// transform stage before the audit log and reply.
type Result struct {
	Values        [][]any
	RevisionToken string
	Replies       []remote.MutationReply
	Impact        *impact.Analysis
	Enlisted      bool   // true when Mutations were queued onto a transaction
	Deduplicated  bool   // true when this call joined or reused an in-flight/cached result
	TxID          string
}

func (c *Call) resourceType() string {
	if c.ResourceType != "" {
		return c.ResourceType
	}
	return "tool"
}

func (c *Call) isMutation() bool {
	return len(c.Mutations) > 0
}
