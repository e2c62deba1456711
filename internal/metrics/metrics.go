// Package metrics provides Prometheus collectors for catalog, completion,
// and matching activity. Collectors are registered with the default registry
// and exposed on /metrics by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_catalog_requests_total",
			Help: "Catalog API requests by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "libra_catalog_request_duration_seconds",
			Help:    "Catalog API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "libra_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Completion metrics
	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_completion_requests_total",
			Help: "Completion API requests by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "libra_completion_duration_seconds",
			Help:    "Completion API latency in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_completion_tokens_total",
			Help: "Tokens reported by completion providers",
		},
		[]string{"provider", "kind"},
	)

	// Matching metrics
	StrategyHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_match_strategy_hits_total",
			Help: "Recommendations resolved, by the search strategy that matched",
		},
		[]string{"strategy"},
	)

	Unresolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "libra_match_unresolved_total",
			Help: "Recommendations no search strategy could resolve",
		},
	)

	CategoryFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_match_category_fallbacks_total",
			Help: "Category searches issued because too few recommendations resolved",
		},
		[]string{"category"},
	)

	DegradedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_recommend_degraded_total",
			Help: "Recommendation calls served by direct catalog search, by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libra_http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
)

// Status labels shared by request counters.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusRejected = "rejected"
)
