package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_query_fetches_total",
		Help: "Page fetches by query and outcome",
	}, []string{"query", "outcome"})

	fetchesIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_query_fetches_ignored_total",
		Help: "FetchNext calls that were no-ops, by query and reason",
	}, []string{"query", "reason"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rnm_query_fetch_duration_seconds",
		Help:    "Page fetch duration by query",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"query"})

	cachedPages = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rnm_query_pages",
		Help: "Pages held by query, including local pages",
	}, []string{"query"})

	cachedRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rnm_query_records",
		Help: "Records held by query",
	}, []string{"query"})

	localAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_query_local_appends_total",
		Help: "Records appended locally without a fetch",
	}, []string{"query"})
)
