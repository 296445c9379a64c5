package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgarden_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordgarden_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GenerationsTotal counts generation attempts by outcome:
	// ok, rejected, upstream_error, error.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgarden_generations_total",
			Help: "Total number of generation requests by outcome.",
		},
		[]string{"status"},
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wordgarden_generation_backend_duration_seconds",
			Help:    "Latency of calls to the generation backend.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgarden_quota_rejections_total",
			Help: "Generation requests refused by quota, by exceeded period.",
		},
		[]string{"kind"},
	)

	TokenExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgarden_token_exchanges_total",
			Help: "Identity-to-session token exchanges by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		GenerationDuration,
		QuotaRejectionsTotal,
		TokenExchangesTotal,
	)
}
