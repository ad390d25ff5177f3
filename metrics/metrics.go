package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChunksTotal tracks the number of chunks queued for processing.
var ChunksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chunkstats_chunks_total",
		Help: "Total chunks queued for processing",
	},
	[]string{"run"},
)

// JobsDispatchedTotal tracks the number of chunks handed to workers.
var JobsDispatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chunkstats_jobs_dispatched_total",
		Help: "Total chunks dispatched to workers",
	},
	[]string{"run"},
)

// ResultsStoredTotal tracks the number of partial results written to the store.
var ResultsStoredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chunkstats_results_stored_total",
		Help: "Total partial results stored",
	},
	[]string{"run"},
)

// SessionErrorsTotal tracks sessions closed because of an error.
var SessionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chunkstats_session_errors_total",
		Help: "Total worker sessions closed by an error",
	},
	[]string{"run"},
)

// ChunksRequeuedTotal tracks leased chunks returned to the queue after a session closed.
var ChunksRequeuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chunkstats_chunks_requeued_total",
		Help: "Total leased chunks returned to the queue",
	},
	[]string{"run"},
)

// ActiveSessions tracks the current number of open worker sessions.
var ActiveSessions = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "chunkstats_active_sessions",
		Help: "Current open worker sessions",
	},
	[]string{"run"},
)

// CompletedChunks tracks the completion counter of the current run.
var CompletedChunks = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "chunkstats_completed_chunks",
		Help: "Results received in the current run",
	},
	[]string{"run"},
)

// UpsertDuration tracks result store write latency.
var UpsertDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "chunkstats_upsert_duration_seconds",
		Help:    "Result store upsert latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"run"},
)
