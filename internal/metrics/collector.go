// Package metrics exposes Prometheus instrumentation for ingestion runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics recorded by ingestion drivers.
type Collector struct {
	RunsTotal     *prometheus.CounterVec
	FetchAttempts *prometheus.CounterVec
	FetchRetries  *prometheus.CounterVec
	RowsWritten   *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// NewCollector registers the ingestion metrics with the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickelt_runs_total",
				Help: "Total number of ingestion runs by terminal status",
			},
			[]string{"origin", "framework", "status"},
		),
		FetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickelt_fetch_attempts_total",
				Help: "Total number of fetch attempts including retries",
			},
			[]string{"origin"},
		),
		FetchRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickelt_fetch_retries_total",
				Help: "Total number of fetch retries after transient failures",
			},
			[]string{"origin"},
		),
		RowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickelt_rows_written_total",
				Help: "Total number of rows landed in the bronze layer",
			},
			[]string{"origin", "format"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quickelt_stage_duration_seconds",
				Help:    "Duration of each ingestion stage in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"origin", "stage"},
		),
	}
}
