package nlquery

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// Kind classifies a failed bridge call. It never leaves the process in a
// response body; handlers use it to pick a status code and metrics use it
// as an outcome label.
type Kind string

const (
	KindNone      Kind = ""
	KindInput     Kind = "input"
	KindConfig    Kind = "config"
	KindTransport Kind = "transport"
	KindCanceled  Kind = "canceled"
	KindMalformed Kind = "malformed"
	KindProvider  Kind = "provider"
)

// Result is the canonical outcome of one bridge call, regardless of which
// provider served it. Exactly one of (SQL, Rows) or Error carries data.
// Rows keeps each row as the raw JSON received from the provider, so
// column order and null values survive normalization untouched.
type Result struct {
	Success bool              `json:"success"`
	SQL     string            `json:"sql,omitempty"`
	Rows    []json.RawMessage `json:"results,omitempty"`
	Error   string            `json:"error,omitempty"`
	Kind    Kind              `json:"-"`
}

func successResult(sql string, rows []json.RawMessage) Result {
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return Result{Success: true, SQL: sql, Rows: rows}
}

func failure(kind Kind, message string) Result {
	return Result{Success: false, Error: message, Kind: kind}
}

// Provider builds provider-specific wire requests and normalizes the
// provider's responses into the canonical Result. Implementations hold
// only immutable configuration captured at construction, so one instance
// may serve concurrent calls.
type Provider interface {
	Name() string
	BuildRequest(ctx context.Context, query string) (*http.Request, error)
	Normalize(statusCode int, body []byte) Result
}

// statusFailure normalizes a non-2xx provider response: a structured
// error field is used verbatim, anything else gets a synthesized message.
func statusFailure(statusCode int, body []byte) Result {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return failure(KindProvider, envelope.Error)
	}
	return failure(KindProvider, "Request failed with status "+strconv.Itoa(statusCode))
}
