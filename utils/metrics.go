package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)

	// Prompt Metrics
	PromptOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_operations_total",
			Help: "Total number of prompt operations",
		},
		[]string{"operation"}, // create, tag, collection, archive, migrate
	)

	// Cache Metrics
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache lookups by outcome",
		},
		[]string{"cache", "outcome"}, // hit/miss
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"}, // db, cache, validation
	)
)

// TrackDBOperation times one database operation.
func TrackDBOperation(operation, collection string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, collection))
}

// TrackPromptOperation increments the prompt operation counter.
func TrackPromptOperation(operation string) {
	PromptOperationsTotal.WithLabelValues(operation).Inc()
}

// TrackCacheOperation records a cache hit or miss.
func TrackCacheOperation(cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheOperationsTotal.WithLabelValues(cache, outcome).Inc()
}

// TrackError increments the error counter for a given error type.
func TrackError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}
