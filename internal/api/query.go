package api

import (
	"encoding/json"
	"net/http"

	"github.com/smartbiz/smartbiz/internal/nlquery"
)

type smartSQLRequest struct {
	Query string `json:"query"`
}

// handleSmartSQL answers with the canonical query result envelope. The
// HTTP status tracks the failure kind; the body is always the envelope,
// so clients can branch on "success" alone.
func handleSmartSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Query == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_SERVICE_MISSING", "query service is not configured", false, nil)
		return
	}

	var req smartSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Non-string query values fail here and never reach a provider.
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with a string \"query\" field", false, nil)
		return
	}

	result := deps.Query.Execute(r.Context(), req.Query)
	writeJSON(w, statusForResult(result), result)
}

func statusForResult(result nlquery.Result) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Kind {
	case nlquery.KindInput:
		return http.StatusBadRequest
	case nlquery.KindConfig:
		return http.StatusInternalServerError
	case nlquery.KindCanceled:
		return http.StatusGatewayTimeout
	case nlquery.KindTransport, nlquery.KindMalformed, nlquery.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
