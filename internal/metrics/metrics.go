package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "embed"

// Embedding Prometheus metrics.
var (
	EmbedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of /embed requests by outcome",
		},
		[]string{"model", "status"}, // "ok" / "empty_input" / "batch_too_large" / "invalid" / "error"
	)

	EmbedTextsPerRequest = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "texts_per_request",
			Help:      "Number of texts in accepted /embed requests",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	EmbedTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total tokens reported in /embed usage",
		},
		[]string{"model"},
	)

	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_duration_seconds",
			Help:      "Model and tokenizer call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend", "operation"},
	)

	BackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Model and tokenizer call failures",
		},
		[]string{"backend", "operation"},
	)

	UsageRecordErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_record_errors_total",
			Help:      "Usage events a sink failed to record",
		},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(
		EmbedRequestsTotal,
		EmbedTextsPerRequest,
		EmbedTokensTotal,
		BackendDuration,
		BackendErrorsTotal,
		UsageRecordErrorsTotal,
	)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
