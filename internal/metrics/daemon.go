package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks errors that aborted a directory's pass
	ErrorsTotal prometheus.Counter

	// CyclesTotal counts housekeeping cycles by trigger (interval, signal, startup)
	CyclesTotal *prometheus.CounterVec

	// FreeSpacePercent tracks free space on the filesystem holding each directory
	FreeSpacePercent *prometheus.GaugeVec

	// DirectoryHealthy is 1 when the directory's last pass completed, 0 otherwise
	DirectoryHealthy *prometheus.GaugeVec
)

func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"tempsweep_daemon_errors_total",
		"Total number of errors encountered by tempsweep.",
	)

	CyclesTotal = NewCounterVec(
		"tempsweep_daemon_cycles_total",
		"Housekeeping cycles run, by trigger.",
		[]string{"trigger"},
	)

	FreeSpacePercent = NewGaugeVec(
		"tempsweep_directory_free_space_percent",
		"Free space on the filesystem holding a configured directory.",
		[]string{"path"},
	)

	DirectoryHealthy = NewGaugeVec(
		"tempsweep_directory_healthy",
		"Whether the last pass over a directory completed (1) or failed (0).",
		[]string{"path"},
	)
}

func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(FreeSpacePercent)
	prometheus.MustRegister(DirectoryHealthy)
}

// UpdateFreeSpacePercent records free space for path
func UpdateFreeSpacePercent(path string, pct float64) {
	FreeSpacePercent.WithLabelValues(path).Set(pct)
}

// SetDirectoryHealth records the outcome of the last pass over path
func SetDirectoryHealth(path string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	DirectoryHealthy.WithLabelValues(path).Set(v)
}
