package datastore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store instrumentation, exposed by `grimoire mcp --metrics-addr`.
var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimoire_store_queries_total",
		Help: "Total number of queries sent to the activity store.",
	}, []string{"backend", "status"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grimoire_store_query_seconds",
		Help:    "Time spent running one query, rows included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	rowsReturned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grimoire_store_rows_total",
		Help: "Total number of rows returned by the activity store.",
	}, []string{"backend"})
)
