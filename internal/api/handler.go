package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartbiz/smartbiz/internal/config"
	"github.com/smartbiz/smartbiz/internal/export"
	"github.com/smartbiz/smartbiz/internal/invoice"
	"github.com/smartbiz/smartbiz/internal/nlquery"
	"github.com/smartbiz/smartbiz/internal/observability"
	"github.com/smartbiz/smartbiz/internal/speech"
	"github.com/smartbiz/smartbiz/internal/store"
)

type ReadinessCheck func(ctx context.Context) error

type QueryService interface {
	Execute(ctx context.Context, query string) nlquery.Result
	Configured() bool
	ProviderName() string
}

type AssistantService interface {
	Respond(ctx context.Context, message, extraContext string) string
}

type SpeechService interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	Voices(ctx context.Context) []speech.Voice
}

type InvoiceService interface {
	Generate(ctx context.Context, in invoice.GenerateInput) (store.Invoice, error)
	Get(ctx context.Context, invoiceID int64) (store.Invoice, error)
	List(ctx context.Context, businessID int64) ([]store.Invoice, error)
	MarkPaid(ctx context.Context, invoiceID int64) (store.Invoice, error)
	RenderPDF(ctx context.Context, invoiceID int64) ([]byte, error)
}

type ExportService interface {
	ExportInvoices(ctx context.Context, businessID int64) (export.ExportResult, error)
}

type ChatStore interface {
	AppendChat(ctx context.Context, in store.AppendChatInput) (store.ChatMessage, error)
	ListChatHistory(ctx context.Context, userID int64, limit int) ([]store.ChatMessage, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Query             QueryService
	Assistant         AssistantService
	Speech            SpeechService
	Invoices          InvoiceService
	Exports           ExportService
	Chat              ChatStore
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /api/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /api/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/smartsql", func(w http.ResponseWriter, r *http.Request) {
		handleSmartSQL(deps, w, r)
	})
	protected.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	protected.HandleFunc("GET /api/chat/history", func(w http.ResponseWriter, r *http.Request) {
		handleChatHistory(deps, w, r)
	})
	protected.HandleFunc("POST /api/chat/voice", func(w http.ResponseWriter, r *http.Request) {
		handleChatVoice(deps, w, r)
	})
	protected.HandleFunc("GET /api/chat/voices", func(w http.ResponseWriter, r *http.Request) {
		handleChatVoices(deps, w, r)
	})
	protected.HandleFunc("POST /api/invoice/generate", func(w http.ResponseWriter, r *http.Request) {
		handleInvoiceGenerate(deps, w, r)
	})
	// Collection routes live under /api/invoices so their wildcards never
	// overlap the per-invoice /api/invoice/{id} patterns.
	protected.HandleFunc("GET /api/invoices/{business}", func(w http.ResponseWriter, r *http.Request) {
		handleInvoiceList(deps, w, r)
	})
	protected.HandleFunc("GET /api/invoice/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleInvoiceGet(deps, w, r)
	})
	protected.HandleFunc("GET /api/invoice/{id}/pdf", func(w http.ResponseWriter, r *http.Request) {
		handleInvoicePDF(deps, w, r)
	})
	protected.HandleFunc("POST /api/invoice/{id}/paid", func(w http.ResponseWriter, r *http.Request) {
		handleInvoicePaid(deps, w, r)
	})
	protected.HandleFunc("POST /api/invoices/{business}/export", func(w http.ResponseWriter, r *http.Request) {
		handleInvoiceExport(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /api/smartsql", protectedHandler)
	mux.Handle("POST /api/chat", protectedHandler)
	mux.Handle("GET /api/chat/history", protectedHandler)
	mux.Handle("POST /api/chat/voice", protectedHandler)
	mux.Handle("GET /api/chat/voices", protectedHandler)
	mux.Handle("POST /api/invoice/generate", protectedHandler)
	mux.Handle("GET /api/invoices/{business}", protectedHandler)
	mux.Handle("GET /api/invoice/{id}", protectedHandler)
	mux.Handle("GET /api/invoice/{id}/pdf", protectedHandler)
	mux.Handle("POST /api/invoice/{id}/paid", protectedHandler)
	mux.Handle("POST /api/invoices/{business}/export", protectedHandler)

	return chain(mux,
		observability.TraceMiddleware,
		observability.InstrumentMiddleware(deps.Logger),
	)
}

func CheckDatabaseDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.DSN == "" {
			return errors.New("database dsn is not configured")
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.ObjectStore.Enabled {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
