package nlquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DirectProvider is the legacy fallback backend. Its historical contract
// differs from the bridge: the request carries a schema context hint and
// a 2xx body is a bare {"sql","results"} object with no success flag.
type DirectProvider struct {
	baseURL       string
	apiKey        string
	schemaContext string
}

func NewDirectProvider(baseURL, apiKey, schemaContext string) (*DirectProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("direct API key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("direct base URL is required")
	}
	return &DirectProvider{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:        strings.TrimSpace(apiKey),
		schemaContext: schemaContext,
	}, nil
}

func (p *DirectProvider) Name() string { return "direct" }

func (p *DirectProvider) BuildRequest(ctx context.Context, query string) (*http.Request, error) {
	payload := struct {
		Query   string `json:"query"`
		Context string `json:"context"`
	}{Query: query, Context: p.schemaContext}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal direct payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/smartsql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build direct request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	return req, nil
}

func (p *DirectProvider) Normalize(statusCode int, body []byte) Result {
	if statusCode < 200 || statusCode >= 300 {
		return statusFailure(statusCode, body)
	}

	var envelope struct {
		SQL     string            `json:"sql"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return failure(KindMalformed, "unexpected response shape")
	}
	return successResult(envelope.SQL, envelope.Results)
}
