package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tempsweep/internal/tempfiles"
)

// Housekeeping metrics
var (
	// PurgeDuration tracks how long a purge or sweep of one directory takes
	PurgeDuration *prometheus.HistogramVec

	// FilesRemovedTotal counts entries removed, by reason
	FilesRemovedTotal *prometheus.CounterVec

	// FailuresTotal counts suppressed per-item failures, by operation
	FailuresTotal *prometheus.CounterVec

	// MarkersWrittenTotal counts deferred deletions
	MarkersWrittenTotal prometheus.Counter

	// PurgeSkippedTotal counts purges skipped because the sentinel was missing
	PurgeSkippedTotal *prometheus.CounterVec

	// LastRunTimestamp records the Unix time of the last completed cycle
	LastRunTimestamp prometheus.Gauge
)

func initPurgeMetrics() {
	PurgeDuration = NewDurationHistogramVec(
		"tempsweep_pass_duration_seconds",
		"Duration of a single purge or marker sweep of one directory.",
		[]string{"pass"},
	)

	FilesRemovedTotal = NewCounterVec(
		"tempsweep_files_removed_total",
		"Entries removed by tempsweep.",
		[]string{"reason"},
	)

	FailuresTotal = NewCounterVec(
		"tempsweep_item_failures_total",
		"Per-item failures that were skipped during housekeeping.",
		[]string{"op"},
	)

	MarkersWrittenTotal = NewCounter(
		"tempsweep_markers_written_total",
		"Deletion markers written for files that could not be removed.",
	)

	PurgeSkippedTotal = NewCounterVec(
		"tempsweep_purge_skipped_total",
		"Purges skipped because the sentinel file was missing.",
		[]string{"path"},
	)

	LastRunTimestamp = NewGauge(
		"tempsweep_last_run_timestamp",
		"Timestamp of the last housekeeping cycle (Unix epoch seconds).",
	)
}

func registerPurgeMetrics() {
	prometheus.MustRegister(PurgeDuration)
	prometheus.MustRegister(FilesRemovedTotal)
	prometheus.MustRegister(FailuresTotal)
	prometheus.MustRegister(MarkersWrittenTotal)
	prometheus.MustRegister(PurgeSkippedTotal)
	prometheus.MustRegister(LastRunTimestamp)
}

// RecordRun updates the last run timestamp to current time
func RecordRun() {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordPass observes the duration of one pass ("purge" or "sweep")
func RecordPass(pass string, elapsed time.Duration) {
	PurgeDuration.WithLabelValues(pass).Observe(elapsed.Seconds())
}

// RecordSkipped counts a purge that found no sentinel
func RecordSkipped(path string) {
	PurgeSkippedTotal.WithLabelValues(path).Inc()
}

// Observer feeds tempfiles events into the counters above.
// Init must have been called.
type Observer struct{}

var _ tempfiles.Observer = Observer{}

func (Observer) Removed(_ string, reason tempfiles.Reason) {
	FilesRemovedTotal.WithLabelValues(reason.String()).Inc()
}

func (Observer) Marked(string) {
	MarkersWrittenTotal.Inc()
}

func (Observer) Failed(_, op string, _ error) {
	FailuresTotal.WithLabelValues(op).Inc()
}
