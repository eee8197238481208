// Package metrics defines the Prometheus collectors for scanning and watching.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdindex_scan_runs_total",
			Help: "Total number of directory scans",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mdindex_scan_duration_seconds",
			Help:    "Duration of a full scan across all roots",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ScanDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdindex_scan_documents",
			Help: "Number of documents in the most recent snapshot",
		},
	)

	// ScanSkippedTotal counts roots and entries skipped during traversal.
	// reason is one of "missing_root", "excluded_root", "walk_error", "metadata".
	ScanSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdindex_scan_skipped_total",
			Help: "Total number of roots or entries skipped during scans",
		},
		[]string{"reason"},
	)
)

// Watcher metrics
var (
	WatcherSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdindex_watcher_sessions_active",
			Help: "Number of running watch sessions",
		},
	)

	WatcherWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdindex_watcher_watched_directories",
			Help: "Number of directories subscribed across all sessions",
		},
	)

	// WatcherNotificationsTotal counts raw fsnotify notifications by op.
	WatcherNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdindex_watcher_notifications_total",
			Help: "Total number of native filesystem notifications received",
		},
		[]string{"op"},
	)

	// WatcherEventsTotal counts emitted change events by signal name.
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdindex_watcher_events_total",
			Help: "Total number of change events emitted",
		},
		[]string{"event"},
	)

	// WatcherDroppedTotal counts notifications that produced no event.
	// reason is one of "policy", "vanished", "ignored_op".
	WatcherDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdindex_watcher_dropped_total",
			Help: "Total number of notifications dropped without emitting",
		},
		[]string{"reason"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdindex_watcher_errors_total",
			Help: "Total number of watcher errors (subscription and native)",
		},
	)

	WatcherSinkFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mdindex_watcher_sink_failures_total",
			Help: "Total number of events the sink failed to accept",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdindex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdindex_event_subscribers",
			Help: "Number of connected event stream subscribers",
		},
	)
)
