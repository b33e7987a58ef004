package remote

import (
	"net/http"

	"github.com/sheetmcp/sheetcore/toolerr"
)

// ClassifyStatus maps a remote HTTP status code and an optional
// service-level reason string onto the toolerr taxonomy, tagging each
// structured error by HTTP status and service-level reason.
func ClassifyStatus(status int, reason, message string) *toolerr.Error {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return toolerr.New(toolerr.InvalidParams, message)
	case http.StatusUnauthorized:
		return toolerr.New(toolerr.AuthError, message)
	case http.StatusForbidden:
		return toolerr.New(toolerr.PermissionDenied, message)
	case http.StatusNotFound:
		return toolerr.New(toolerr.NotFound, message)
	case http.StatusConflict:
		return toolerr.New(toolerr.Conflict, message)
	case http.StatusTooManyRequests:
		return toolerr.New(toolerr.RateLimit, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return toolerr.New(toolerr.Timeout, message)
	default:
		if status >= 500 {
			return toolerr.New(toolerr.RemoteUnavailable, message)
		}
		return toolerr.Newf(toolerr.InternalError, "unexpected remote status %d: %s (%s)", status, message, reason)
	}
}

// IsRetryableStatus reports whether status/network-level failures at this
// HTTP status should count toward the circuit breaker's failure threshold:
// only retryable categories — HTTP 429/5xx, network, timeout — count.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500 || status == http.StatusRequestTimeout
}
