package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	nlQueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartbiz_nlquery_requests_total",
			Help: "Total number of natural-language query bridge calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	nlQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartbiz_nlquery_duration_seconds",
			Help:    "Natural-language query bridge round-trip latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
	assistantFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartbiz_assistant_fallbacks_total",
			Help: "Total number of chat responses served from the demo fallback.",
		},
	)
	invoicesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartbiz_invoices_generated_total",
			Help: "Total number of invoices generated.",
		},
	)
	speechRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartbiz_speech_requests_total",
			Help: "Total number of text-to-speech synthesis calls by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		nlQueryRequestsTotal,
		nlQueryDurationSeconds,
		assistantFallbacksTotal,
		invoicesGeneratedTotal,
		speechRequestsTotal,
	)
}

func ObserveNLQuery(provider, outcome string, elapsed time.Duration) {
	nlQueryRequestsTotal.WithLabelValues(provider, outcome).Inc()
	nlQueryDurationSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func IncrementAssistantFallback() {
	assistantFallbacksTotal.Inc()
}

func IncrementInvoicesGenerated() {
	invoicesGeneratedTotal.Inc()
}

func ObserveSpeechRequest(outcome string) {
	speechRequestsTotal.WithLabelValues(outcome).Inc()
}
