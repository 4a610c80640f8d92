// Package services – Prometheus instrumentation for the reconciliation
// pipeline. Label sets stay small on purpose: shop domains and emails are
// never used as labels.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// reconcileRuns counts reconciliation passes by outcome ("ok" when the
	// pass completed, "error" when it aborted before finishing the batch).
	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_reconcile_runs_total",
			Help: "Total number of reconciliation passes.",
		},
		[]string{"outcome"},
	)

	// creditsProcessed counts individual credit records processed by result:
	// "completed", "failed", or "released" (network trouble, retried later).
	creditsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_records_processed_total",
			Help: "Total number of credit records processed by the reconciler.",
		},
		[]string{"result"},
	)

	// reconcileDuration records how long one reconciliation pass takes.
	// Buckets cover the expected range given API pacing: batches of up to 50
	// records at two requests per second.
	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// ingestRows counts ingested upload rows by gate decision.
	ingestRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ingest_rows_total",
			Help: "Total number of upload rows processed by the ingestion gate.",
		},
		[]string{"decision"},
	)
)

func init() {
	prometheus.MustRegister(reconcileRuns, creditsProcessed, reconcileDuration, ingestRows)
}
