package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts transform and merge jobs by outcome.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mstransform_jobs_total",
			Help: "Total number of transform and merge jobs",
		},
		[]string{"kind", "status"},
	)
	// JobDuration is the wall time of a job, storage included.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mstransform_job_duration_seconds",
			Help:    "Job latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mstransform_warnings_total",
			Help: "Non-fatal selection warnings by kind",
		},
		[]string{"kind"},
	)
	// RowsWritten counts MAIN rows in job outputs.
	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mstransform_main_rows_written_total",
			Help: "MAIN rows written by jobs",
		},
	)
	Datasets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mstransform_catalog_datasets",
			Help: "Datasets currently in the catalog",
		},
	)
)
