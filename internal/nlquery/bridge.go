package nlquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// BridgeProvider is the primary execution backend: a worker exposing a
// single endpoint that translates a natural-language query to SQL, runs
// it, and answers with a discriminated success/error envelope.
type BridgeProvider struct {
	url    string
	apiKey string
}

func NewBridgeProvider(url, apiKey string) (*BridgeProvider, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("bridge URL is required")
	}
	return &BridgeProvider{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
	}, nil
}

func (p *BridgeProvider) Name() string { return "bridge" }

func (p *BridgeProvider) BuildRequest(ctx context.Context, query string) (*http.Request, error) {
	payload := struct {
		Query string `json:"query"`
	}{Query: query}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal bridge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The header is omitted entirely when no key is configured; the bridge
	// must never see an empty bearer value.
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return req, nil
}

// Normalize matches the bridge envelope in order: success shape, then
// error shape, then malformed. Key probing beyond the discriminator is
// deliberately absent.
func (p *BridgeProvider) Normalize(statusCode int, body []byte) Result {
	if statusCode < 200 || statusCode >= 300 {
		return statusFailure(statusCode, body)
	}

	var envelope struct {
		Success *bool             `json:"success"`
		SQL     string            `json:"sql"`
		Results []json.RawMessage `json:"results"`
		Error   string            `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return failure(KindMalformed, "unexpected response shape")
	}

	switch {
	case envelope.Success != nil && *envelope.Success:
		return successResult(envelope.SQL, envelope.Results)
	case envelope.Success != nil && envelope.Error != "":
		return failure(KindProvider, envelope.Error)
	default:
		return failure(KindMalformed, "unexpected response shape")
	}
}
