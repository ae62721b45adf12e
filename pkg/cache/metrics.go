package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokecache_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"}, // "redis", "bolt"
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokecache_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// CacheWrites tracks successful writes by backend
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokecache_cache_writes_total",
			Help: "Total number of successful cache writes",
		},
		[]string{"backend"},
	)

	// CacheSize tracks bytes written by backend
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pokecache_cache_size_bytes",
			Help: "Bytes written to the cache since process start",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokecache_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "ping"
	)
)
