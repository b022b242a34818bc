// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for export runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	sessionsExported = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panoptoexport_sessions_exported",
		Help: "Number of sessions written to CSV in the last export",
	})

	sessionsDeclaredTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panoptoexport_sessions_declared_total",
		Help: "Server-declared total number of sessions for the folder (last export)",
	})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panoptoexport_pages_fetched_total",
		Help: "Total number of session listing pages fetched",
	})

	exportFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoptoexport_export_failures_total",
		Help: "Total number of export failures by stage",
	}, []string{"stage"}) // stage=config|auth|fetch|write_csv

	exportPartialTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panoptoexport_export_partial_total",
		Help: "Total number of exports that ended with a partial result",
	})

	exportDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "panoptoexport_export_duration_seconds",
		Help:    "Time spent fetching and writing a folder export",
		Buckets: prometheus.DefBuckets,
	})

	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panoptoexport_api_requests_total",
		Help: "Panopto API requests by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|error

	// Learning-object report metrics
	learningObjects = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "panoptoexport_learning_objects",
		Help: "Learning objects by type in the last report run",
	}, []string{"type"}) // type=panopto|thinglink|articulate|wordpress|powtoon|other
)

func RecordSessionsExported(n int)  { sessionsExported.Set(float64(n)) }
func RecordDeclaredTotal(n int)     { sessionsDeclaredTotal.Set(float64(n)) }
func IncPageFetched()               { pagesFetchedTotal.Inc() }
func IncExportFailure(stage string) { exportFailuresTotal.WithLabelValues(stage).Inc() }
func IncExportPartial()             { exportPartialTotal.Inc() }

func ObserveExportDuration(seconds float64) { exportDurationSeconds.Observe(seconds) }

func IncAPIRequest(operation, outcome string) {
	apiRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordLearningObjects(counts map[string]int) {
	for typ, n := range counts {
		learningObjects.WithLabelValues(typ).Set(float64(n))
	}
}
