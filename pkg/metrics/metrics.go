// Package metrics exposes the Prometheus metrics of rnm-query.
// Metrics are defined in their own packages (client, cache, query, trigger)
// with promauto and register on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gatherer is the registry the promauto metrics of rnm-query register on.
var Gatherer = prometheus.DefaultGatherer

// Handler serves Gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - rnm_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - rnm_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - rnm_errors_total{class} (Counter): Errors by class (network, parse, client, server)
//
// Cache Metrics (pkg/cache):
//   - rnm_cache_hits_total (Counter): Stored entries found
//   - rnm_cache_misses_total (Counter): Lookups without an entry
//   - rnm_cache_stored_bytes (Counter): Bytes of response bodies written to Redis
//   - rnm_cache_revalidations_total{result} (Counter): not_modified or modified
//   - rnm_cache_errors_total{operation} (Counter): Redis errors by operation
//
// Query Metrics (pkg/query):
//   - rnm_query_fetches_total{query, outcome} (Counter): Page fetches (success, error)
//   - rnm_query_fetches_ignored_total{query, reason} (Counter): No-op fetch-next calls
//   - rnm_query_fetch_duration_seconds{query} (Histogram): Page fetch duration
//   - rnm_query_pages{query} (Gauge): Cached pages
//   - rnm_query_records{query} (Gauge): Cached records
//   - rnm_query_local_appends_total{query} (Counter): Local appends
//
// Scroll Metrics (pkg/trigger):
//   - rnm_scroll_events_total{outcome} (Counter): not_at_bottom, ignored, started
//
// Example Prometheus Queries:
//
//   # Share of fetch-next calls swallowed by the loading guard
//   sum(rate(rnm_query_fetches_ignored_total{reason="loading"}[5m])) /
//   sum(rate(rnm_scroll_events_total{outcome!="not_at_bottom"}[5m]))
//
//   # Revalidation hit rate
//   rate(rnm_cache_revalidations_total{result="not_modified"}[5m]) /
//   rate(rnm_cache_revalidations_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(rnm_request_duration_seconds_bucket[5m]))
