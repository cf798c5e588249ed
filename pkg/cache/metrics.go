package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits counts lookups answered by a stored entry.
	Hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rnm_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	// Misses counts lookups with no usable entry.
	Misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rnm_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	// StoredBytes counts bytes written to Redis.
	StoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rnm_cache_stored_bytes",
		Help: "Total bytes of response bodies written to the cache",
	})

	// Revalidations counts conditional requests by result ("not_modified", "modified").
	Revalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_cache_revalidations_total",
		Help: "Total number of conditional requests by result",
	}, []string{"result"})

	// Errors counts failed cache operations ("get", "set", "delete", "touch").
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_cache_errors_total",
		Help: "Total number of response cache errors by operation",
	}, []string{"operation"})
)
