package nlquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smartbiz/smartbiz/internal/observability"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	BridgeURL     string
	BridgeAPIKey  string
	DirectBaseURL string
	DirectAPIKey  string
	SchemaContext string
	Timeout       time.Duration
}

// Service routes natural-language queries to the provider selected at
// construction. The provider and its credentials are immutable for the
// service's lifetime, so concurrent Execute calls share nothing mutable.
type Service struct {
	provider Provider
	client   *http.Client
	logger   *slog.Logger
}

// NewService resolves the provider exactly once: a configured bridge URL
// wins, a direct API key is the fallback, and anything else leaves the
// service unconfigured (every Execute then fails with a config result).
// A provider constructor rejecting its settings also leaves the service
// unconfigured; a half-built provider must never be stored. Execute
// never re-reads configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	var provider Provider
	switch {
	case strings.TrimSpace(cfg.BridgeURL) != "":
		bridge, err := NewBridgeProvider(cfg.BridgeURL, cfg.BridgeAPIKey)
		if err == nil {
			provider = bridge
		} else if logger != nil {
			logger.Warn("bridge provider rejected its configuration", slog.Any("error", err))
		}
	case strings.TrimSpace(cfg.DirectAPIKey) != "":
		direct, err := NewDirectProvider(cfg.DirectBaseURL, cfg.DirectAPIKey, cfg.SchemaContext)
		if err == nil {
			provider = direct
		} else if logger != nil {
			logger.Warn("direct provider rejected its configuration", slog.Any("error", err))
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (s *Service) Configured() bool { return s.provider != nil }

func (s *Service) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// Execute turns a free-text query into a canonical Result. Every failure
// mode is folded into the Result; no error or panic crosses this
// boundary, so callers branch on Success only.
func (s *Service) Execute(ctx context.Context, query string) (result Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = failure(KindTransport, fmt.Sprintf("query execution panicked: %v", rec))
		}
		outcome := "success"
		if !result.Success {
			outcome = string(result.Kind)
		}
		observability.ObserveNLQuery(s.ProviderName(), outcome, time.Since(start))
		if !result.Success && s.logger != nil {
			s.logger.WarnContext(ctx, "nlquery failed",
				slog.String("provider", s.ProviderName()),
				slog.String("kind", string(result.Kind)),
				slog.String("error", result.Error),
			)
		}
	}()
	return s.execute(ctx, query)
}

func (s *Service) execute(ctx context.Context, query string) Result {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return failure(KindInput, "Query cannot be empty")
	}
	if s.provider == nil {
		return failure(KindConfig, "no query provider configured: set SMARTBIZ_NLQUERY_BRIDGE_URL or SMARTBIZ_NLQUERY_DIRECT_API_KEY")
	}

	req, err := s.provider.BuildRequest(ctx, trimmed)
	if err != nil {
		return failure(KindConfig, fmt.Sprintf("build %s provider request: %v", s.provider.Name(), err))
	}

	// The single network attempt. Queries run against a live backend, so
	// the bridge never retries on its own; callers may call Execute again.
	resp, err := s.client.Do(req)
	if err != nil {
		return transportFailure(s.provider.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(KindTransport, fmt.Sprintf("read %s provider response: %v", s.provider.Name(), err))
	}
	return s.provider.Normalize(resp.StatusCode, body)
}

// transportFailure maps a client error onto the taxonomy. The inner cause
// is kept in the message; credentials travel only in headers and headers
// are never echoed here.
func transportFailure(provider string, err error) Result {
	switch {
	case errors.Is(err, context.Canceled):
		return failure(KindCanceled, fmt.Sprintf("%s provider request canceled", provider))
	case errors.Is(err, context.DeadlineExceeded):
		return failure(KindTransport, fmt.Sprintf("%s provider request timed out", provider))
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return failure(KindTransport, fmt.Sprintf("%s provider request timed out", provider))
		}
		return failure(KindTransport, fmt.Sprintf("%s provider request failed: %v", provider, urlErr.Err))
	}
	return failure(KindTransport, fmt.Sprintf("%s provider request failed: %v", provider, err))
}
