// Package metrics exposes the Prometheus registry used by pokecache.
// All metrics are defined in their respective packages (cache, pokeapi,
// pipeline, chart, server) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by pokecache.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the exposition handler for Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - pokecache_cache_hits_total{backend} (Counter): Cache hits by backend
//   - pokecache_cache_misses_total{backend} (Counter): Cache misses by backend
//   - pokecache_cache_writes_total{backend} (Counter): Successful writes
//   - pokecache_cache_size_bytes{backend} (Gauge): Bytes written since start
//   - pokecache_cache_errors_total{operation} (Counter): Cache operation errors
//
// Upstream Metrics (pkg/pokeapi):
//   - pokecache_upstream_requests_total{status} (Counter): Requests by HTTP status
//   - pokecache_upstream_request_duration_seconds (Histogram): Request duration
//   - pokecache_upstream_errors_total{class} (Counter): Errors by class (client, server, status, network, invalid_body)
//
// Pipeline Metrics (pkg/pipeline):
//   - pokecache_pipeline_operations_total{operation, result} (Counter): Ingest and compare outcomes
//
// Chart Metrics (pkg/chart):
//   - pokecache_charts_rendered_total{format} (Counter): Charts rendered by format
//
// HTTP Metrics (pkg/server):
//   - pokecache_http_requests_total{method, route, status} (Counter)
//   - pokecache_http_request_duration_seconds{method, route} (Histogram)
//   - pokecache_http_requests_in_flight (Gauge)
//   - pokecache_rate_limit_rejects_total (Counter)
//   - pokecache_panic_recoveries_total (Counter)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pokecache_cache_hits_total[5m])) /
//   (sum(rate(pokecache_cache_hits_total[5m])) + sum(rate(pokecache_cache_misses_total[5m])))
//
//   # Comparisons requested before ingest
//   rate(pokecache_pipeline_operations_total{operation="compare",result="no_cached_data"}[5m])
//
//   # Upstream Error Rate
//   rate(pokecache_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(pokecache_upstream_request_duration_seconds_bucket[5m]))
