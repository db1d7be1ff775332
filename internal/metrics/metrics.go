package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route, method and status."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"route", "method"},
	)
	OperationResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "operation_results_total", Help: "Ledger operations by outcome (ok or error kind)."},
		[]string{"operation", "outcome"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total", Help: "History events handed to the broker."},
		[]string{"action", "result"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "month_cache_lookups_total", Help: "Month lookup cache hits and misses."},
		[]string{"result"},
	)
	MirrorRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "mirror_rows_total", Help: "Spreadsheet rows written or cleared by the mirror worker."},
		[]string{"action", "result"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, OperationResults, EventsPublished, CacheLookups, MirrorRows, RateLimited)
}

// ObserveHTTP records one finished request. An empty route means the mux
// matched nothing.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Result maps an error to the "ok"/"error" label used by the counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Exposer returns the standard Prometheus exposition handler.
func Exposer() http.Handler { return promhttp.Handler() }
