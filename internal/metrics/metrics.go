// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks fetch attempts by classified outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_attempts_total",
			Help: "Total number of fetch attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AttemptDuration tracks how long each attempt took
	AttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetcher_attempt_duration_seconds",
			Help:    "Fetch attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// RunsTotal tracks executor runs by final result
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_runs_total",
			Help: "Total number of executor runs by result",
		},
		[]string{"result"},
	)

	// SinkErrorsTotal tracks payloads an observer could not handle
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_sink_errors_total",
			Help: "Total number of observer failures by sink",
		},
		[]string{"sink"},
	)

	// ItemsSavedTotal tracks items written to the store
	ItemsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetcher_items_saved_total",
			Help: "Total number of items saved",
		},
	)

	// JobLastSuccess is the unix time of the last successful run per job
	JobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fetcher_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of a scheduled job",
		},
		[]string{"job"},
	)

	// DBBatchSize tracks rows per bulk insert
	DBBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetcher_db_batch_size",
			Help:    "Number of rows written per bulk insert",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"operation"},
	)

	// DBConnectionPoolUsage is open connections as a percentage of the pool limit
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetcher_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the maximum",
		},
	)
)
