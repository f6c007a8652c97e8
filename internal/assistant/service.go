package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/smartbiz/smartbiz/internal/observability"
)

// Service answers chat messages, serving demo responses when no API key
// is configured or the upstream call fails. The fallback is product
// behavior: the assistant always answers.
type Service struct {
	client *Client
	logger *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	svc := &Service{logger: logger}
	if strings.TrimSpace(cfg.APIKey) != "" {
		client, err := NewClient(cfg)
		if err == nil {
			svc.client = client
		} else if logger != nil {
			logger.Warn("assistant client unavailable", slog.Any("error", err))
		}
	}
	return svc
}

func (s *Service) Respond(ctx context.Context, message, extraContext string) string {
	if s.client == nil {
		observability.IncrementAssistantFallback()
		return demoResponse(message)
	}
	reply, err := s.client.Complete(ctx, message, extraContext)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "assistant call failed, serving demo response", slog.Any("error", err))
		}
		observability.IncrementAssistantFallback()
		return demoResponse(message)
	}
	return reply
}

var demoResponses = []string{
	"As a South African business owner, it's important to register with SARS and obtain your tax clearance certificate. This is essential for doing business with government entities and larger corporations.",
	"For VAT registration in South Africa, you must register if your taxable turnover exceeds R1 million in any consecutive 12-month period. The standard VAT rate is 15%.",
	"BBBEE compliance is crucial for South African businesses. Consider getting your BBBEE certificate to improve your chances of winning government tenders and contracts with large corporations.",
	"When invoicing in South Africa, ensure your invoices include your VAT number (if registered), the VAT amount clearly stated, and comply with SARS requirements for tax invoices.",
	"South African small businesses can benefit from various government support programs. Check out SEDA (Small Enterprise Development Agency) for free business development services.",
}

func demoResponse(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "vat", "tax", "sars"):
		return demoResponses[1]
	case containsAny(lower, "bbbee", "bee", "empowerment"):
		return demoResponses[2]
	case containsAny(lower, "invoice", "billing", "payment"):
		return demoResponses[3]
	case containsAny(lower, "support", "help", "government", "seda"):
		return demoResponses[4]
	default:
		return demoResponses[0]
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
