package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Row-store queries by table and outcome. Watch for: error ratio per table.
	StoreQueriesTotal *prometheus.CounterVec

	// Row-store batch inserts by table and outcome.
	StoreInsertsTotal *prometheus.CounterVec

	// Change notifications delivered to subscribers, per table.
	ChangeEventsTotal *prometheus.CounterVec

	// Synchronizer refetches by table and outcome. An error leaves the previous
	// projection in place, so a sustained error streak means stale panels.
	SyncRefreshesTotal *prometheus.CounterVec

	// Open-Meteo ingestion calls by outcome.
	IngestCallsTotal *prometheus.CounterVec

	// Open-Meteo call latency. Watch for: p95 > 2s (upstream degradation).
	IngestDuration *prometheus.HistogramVec

	// Failed ingestion fetches by error category (timeout, network, rate_limited,
	// upstream_5xx, parsing, unknown). Finer-grained than the status label on
	// IngestCallsTotal; one increment per failed fetch, after retries.
	IngestErrorsTotal *prometheus.CounterVec

	// Retry attempts for ingestion calls. High retries = unstable upstream.
	IngestRetriesTotal prometheus.Counter

	// Traffic derivation runs by outcome. A failed run leaves traffic stale
	// until the next cycle.
	DeriveRunsTotal *prometheus.CounterVec

	// Traffic rows produced by the derivation pipeline.
	DeriveReadingsTotal prometheus.Counter

	// Chat completions by outcome category (success, rate_limited, quota, auth_invalid, upstream).
	ChatRequestsTotal *prometheus.CounterVec

	// Completion gateway latency.
	ChatUpstreamDuration *prometheus.HistogramVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker transitions by component and edge.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Circuit breaker state by component: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState *prometheus.GaugeVec

	// In-flight requests observed when graceful shutdown began.
	shutdownInFlight prometheus.Gauge
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	StoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeQueriesTotal",
			Help: "Row-store queries by table and outcome",
		},
		[]string{"table", "status"},
	)
	StoreInsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeInsertsTotal",
			Help: "Row-store batch inserts by table and outcome",
		},
		[]string{"table", "status"},
	)
	ChangeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "changeEventsTotal",
			Help: "Change notifications delivered to subscribers, per table",
		},
		[]string{"table"},
	)
	SyncRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncRefreshesTotal",
			Help: "Synchronizer refetches by table and outcome",
		},
		[]string{"table", "status"},
	)
	IngestCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestCallsTotal",
			Help: "Open-Meteo ingestion calls by outcome",
		},
		[]string{"status"},
	)
	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingestDurationSeconds",
			Help:    "Open-Meteo call latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	IngestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestErrorsTotal",
			Help: "Failed ingestion fetches by error category",
		},
		[]string{"category"},
	)
	IngestRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestRetriesTotal",
			Help: "Total number of retry attempts for ingestion calls",
		},
	)
	DeriveRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deriveRunsTotal",
			Help: "Traffic derivation runs by outcome",
		},
		[]string{"status"},
	)
	DeriveReadingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deriveReadingsTotal",
			Help: "Traffic rows produced by the derivation pipeline",
		},
	)
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatRequestsTotal",
			Help: "Chat completions by outcome category",
		},
		[]string{"status"},
	)
	ChatUpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatUpstreamDurationSeconds",
			Help:    "Completion gateway latency in seconds (per request)",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions by component",
		},
		[]string{"component", "from", "to"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state by component: 0 closed, 1 open, 2 half-open",
		},
		[]string{"component"},
	)
	shutdownInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "In-flight requests observed when graceful shutdown began",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		StoreQueriesTotal, StoreInsertsTotal, ChangeEventsTotal, SyncRefreshesTotal,
		IngestCallsTotal, IngestDuration, IngestErrorsTotal, IngestRetriesTotal,
		DeriveRunsTotal, DeriveReadingsTotal,
		ChatRequestsTotal, ChatUpstreamDuration,
		RateLimitDeniedTotal,
		CircuitBreakerTransitionsTotal, CircuitBreakerState,
		shutdownInFlight,
	)
}

// RecordStoreQuery records one row-store query outcome for the given table.
func RecordStoreQuery(table, status string) {
	StoreQueriesTotal.WithLabelValues(table, status).Inc()
}

// RecordStoreInsert records one row-store batch insert outcome for the given table.
func RecordStoreInsert(table, status string) {
	StoreInsertsTotal.WithLabelValues(table, status).Inc()
}

// RecordCircuitBreakerTransition records a breaker state transition.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// SetCircuitBreakerStateGauge sets the current breaker state gauge for a component.
func SetCircuitBreakerStateGauge(component string, state float64) {
	CircuitBreakerState.WithLabelValues(component).Set(state)
}

// CircuitBreakerStateValue maps a breaker state ordinal to its gauge value.
func CircuitBreakerStateValue(state int) float64 {
	return float64(state)
}

// RecordShutdownInFlight records how many requests were in flight at shutdown.
func RecordShutdownInFlight(count int64) {
	shutdownInFlight.Set(float64(count))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
