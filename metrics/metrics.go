// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinelake_ingest_attempts_total",
		Help: "Ingestion attempts by source and status",
	}, []string{"source", "status"})

	IngestRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinelake_ingest_rows_total",
		Help: "Raw rows captured into snapshots by source",
	}, []string{"source"})

	IngestBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinelake_ingest_bytes_total",
		Help: "Raw bytes captured into snapshots by source",
	}, []string{"source"})

	NormalizationWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinelake_normalization_warnings_total",
		Help: "Field values that degraded to null during normalization",
	}, []string{"field"})

	RowsMerged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinelake_rows_merged_total",
		Help: "Curated rows produced per table",
	}, []string{"table"})

	PublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinelake_publish_duration_seconds",
		Help:    "Time spent publishing one curated table",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})

	ExecutorRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinelake_executor_run_duration_seconds",
		Help:    "End-to-end executor run duration",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"executor"})
)

// Serve exposes /metrics on the given port. It blocks, so callers run it
// in a goroutine for the lifetime of the batch.
func Serve(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(":"+port, mux)
}
