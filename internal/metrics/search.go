package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"cache"}, // "hit" / "miss"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentsearch",
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"cache"},
	)

	PlannerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "planner_requests_total",
			Help:      "Total number of plan translation requests",
		},
		[]string{"provider", "model", "status"},
	)

	PlannerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentsearch",
			Name:      "planner_request_duration_seconds",
			Help:      "Plan translation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	PlannerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "planner_tokens_total",
			Help:      "Total language model tokens consumed by the planner",
		},
		[]string{"provider", "model", "type"},
	)

	PlannerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "planner_errors_total",
			Help:      "Total plan translation errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	PlannerFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "planner_fallback_total",
			Help:      "Searches that used the fallback plan",
		},
		[]string{"reason"},
	)

	GeocodeLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "geocode_lookups_total",
			Help:      "Location resolver lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "not_found" / "error"
	)

	GeocoderBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rentsearch",
			Name:      "geocoder_breaker_state",
			Help:      "Geocoder circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ListingStoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rentsearch",
			Name:      "listing_store_duration_seconds",
			Help:      "Listing store query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"driver", "status"},
	)

	ClickSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "click_signals_total",
			Help:      "Click signals by outcome",
		},
		[]string{"status"}, // "ok" / "ignored"
	)

	SignalWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentsearch",
			Name:      "signal_write_errors_total",
			Help:      "Failed signal writes by effect",
		},
		[]string{"effect"}, // "history" / "popularity" / "amenities" / "criteria" / "enrich"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(PlannerRequestsTotal)
	prometheus.MustRegister(PlannerRequestDuration)
	prometheus.MustRegister(PlannerTokensTotal)
	prometheus.MustRegister(PlannerErrorsTotal)
	prometheus.MustRegister(PlannerFallbackTotal)
	prometheus.MustRegister(GeocodeLookupsTotal)
	prometheus.MustRegister(GeocoderBreakerState)
	prometheus.MustRegister(ListingStoreDuration)
	prometheus.MustRegister(ClickSignalsTotal)
	prometheus.MustRegister(SignalWriteErrorsTotal)
	searchMetricsRegistered = true
}
