package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yt_multiloader_items_added_total",
		Help: "Total number of download rows created",
	})

	ItemsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yt_multiloader_items_removed_total",
		Help: "Total number of download rows removed",
	})

	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yt_multiloader_runs_started_total",
		Help: "Total number of download runs started",
	})

	RunsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yt_multiloader_runs_finished_total",
		Help: "Total number of download runs finished, by final status",
	}, []string{"status"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yt_multiloader_active_runs",
		Help: "Number of download workers currently running",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "yt_multiloader_run_duration_seconds",
		Help:    "Duration of a download run in seconds",
		Buckets: prometheus.DefBuckets,
	})

	MetadataFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yt_multiloader_metadata_failures_total",
		Help: "Total number of failed metadata lookups",
	})
)
