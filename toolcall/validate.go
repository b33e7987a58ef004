package toolcall

import "github.com/sheetmcp/sheetcore/toolerr"

// validate enforces the fast pre-validation step ahead of RBAC: structural
// well-formedness only, never a permissions or business-logic judgment.
func validate(call Call) error {
	if call.Tool == "" {
		return toolerr.New(toolerr.InvalidParams, "tool is required")
	}
	if call.Action == "" {
		return toolerr.New(toolerr.InvalidParams, "action is required")
	}
	if call.DocumentID == "" {
		return toolerr.New(toolerr.InvalidParams, "documentId is required")
	}
	if call.Identity == nil {
		return toolerr.New(toolerr.AuthError, "no identity on call")
	}

	switch {
	case call.Read != nil && call.isMutation():
		return toolerr.New(toolerr.InvalidParams, "call may not carry both a read and mutations")
	case call.Read == nil && !call.isMutation():
		return toolerr.New(toolerr.InvalidParams, "call carries neither a read nor mutations")
	case call.Read != nil:
		if err := call.Read.Range.Validate(); err != nil {
			return toolerr.Wrap(toolerr.InvalidParams, err, "invalid read range")
		}
	default:
		for i, m := range call.Mutations {
			if m.Range != nil {
				if err := m.Range.Validate(); err != nil {
					return toolerr.Wrap(toolerr.InvalidParams, err, "invalid mutation range").
						WithDetails(map[string]any{"index": i})
				}
			}
		}
	}
	return nil
}
