package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"tempsweep/internal/tempfiles"
)

// TestMetricsInit verifies that Init() is idempotent and registers metrics
func TestMetricsInit(t *testing.T) {
	Init()
	Init()
	Init()

	if PurgeDuration == nil {
		t.Error("PurgeDuration should be initialized")
	}
	if FilesRemovedTotal == nil {
		t.Error("FilesRemovedTotal should be initialized")
	}
	if ErrorsTotal == nil {
		t.Error("ErrorsTotal should be initialized")
	}

	// Vectors only show up once a label set exists
	RecordPass("purge", time.Millisecond)
	FilesRemovedTotal.WithLabelValues("expired").Add(0)
	FailuresTotal.WithLabelValues("remove").Add(0)
	PurgeSkippedTotal.WithLabelValues("/init").Add(0)
	CyclesTotal.WithLabelValues("startup").Add(0)
	SetDirectoryHealth("/init", true)
	UpdateFreeSpacePercent("/init", 50)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"tempsweep_pass_duration_seconds",
		"tempsweep_files_removed_total",
		"tempsweep_item_failures_total",
		"tempsweep_markers_written_total",
		"tempsweep_purge_skipped_total",
		"tempsweep_last_run_timestamp",
		"tempsweep_daemon_errors_total",
		"tempsweep_daemon_cycles_total",
		"tempsweep_directory_healthy",
		"tempsweep_directory_free_space_percent",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[mf.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

func TestObserverCountsEvents(t *testing.T) {
	Init()

	var obs tempfiles.Observer = Observer{}
	removed := testutil.ToFloat64(FilesRemovedTotal.WithLabelValues("reclaimed"))
	marked := testutil.ToFloat64(MarkersWrittenTotal)
	failed := testutil.ToFloat64(FailuresTotal.WithLabelValues("read_marker"))

	obs.Removed("/tmp/x", tempfiles.ReasonReclaimed)
	obs.Removed("/tmp/y", tempfiles.ReasonReclaimed)
	obs.Marked("/tmp/z")
	obs.Failed("/tmp/z.delete", tempfiles.OpReadMarker, errors.New("denied"))

	if got := testutil.ToFloat64(FilesRemovedTotal.WithLabelValues("reclaimed")) - removed; got != 2 {
		t.Errorf("reclaimed delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(MarkersWrittenTotal) - marked; got != 1 {
		t.Errorf("markers delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(FailuresTotal.WithLabelValues("read_marker")) - failed; got != 1 {
		t.Errorf("failures delta = %v, want 1", got)
	}
}

func TestDaemonMetricHelpers(t *testing.T) {
	Init()

	SetDirectoryHealth("/scratch/a", false)
	if got := testutil.ToFloat64(DirectoryHealthy.WithLabelValues("/scratch/a")); got != 0 {
		t.Errorf("health = %v, want 0", got)
	}
	SetDirectoryHealth("/scratch/a", true)
	if got := testutil.ToFloat64(DirectoryHealthy.WithLabelValues("/scratch/a")); got != 1 {
		t.Errorf("health = %v, want 1", got)
	}

	before := testutil.ToFloat64(PurgeSkippedTotal.WithLabelValues("/scratch/b"))
	RecordSkipped("/scratch/b")
	if got := testutil.ToFloat64(PurgeSkippedTotal.WithLabelValues("/scratch/b")) - before; got != 1 {
		t.Errorf("skipped delta = %v, want 1", got)
	}

	UpdateFreeSpacePercent("/scratch/a", 42.5)
	if got := testutil.ToFloat64(FreeSpacePercent.WithLabelValues("/scratch/a")); got != 42.5 {
		t.Errorf("free space = %v, want 42.5", got)
	}

	RecordRun()
	if testutil.ToFloat64(LastRunTimestamp) == 0 {
		t.Error("LastRunTimestamp should be set after RecordRun")
	}
}

func TestStandardBuckets(t *testing.T) {
	for i := 1; i < len(DurationBuckets); i++ {
		if DurationBuckets[i] <= DurationBuckets[i-1] {
			t.Errorf("Duration buckets not increasing at %d: %v", i, DurationBuckets)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	Init()
	defer SetHealthFunc(nil)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	SetHealthFunc(func() bool { return false })
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestTriggerEndpoint(t *testing.T) {
	Init()
	ch := make(chan os.Signal, 1)
	SetTriggerChannel(ch)
	defer SetTriggerChannel(nil)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/trigger")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /trigger status = %d, want 405", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/trigger", "text/plain", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /trigger status = %d, want 200", resp.StatusCode)
	}
	if len(ch) != 1 {
		t.Fatalf("expected one queued trigger, got %d", len(ch))
	}

	// Channel full: second trigger is refused instead of blocking
	resp, err = http.Post(srv.URL+"/trigger", "text/plain", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("full channel status = %d, want 503", resp.StatusCode)
	}
}

func TestTriggerEndpointRateLimited(t *testing.T) {
	Init()
	ch := make(chan os.Signal, 10)
	SetTriggerChannel(ch)
	defer SetTriggerChannel(nil)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	var codes []int
	for i := 0; i < TriggerBurst+1; i++ {
		resp, err := http.Post(srv.URL+"/trigger", "text/plain", strings.NewReader(""))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if last := codes[len(codes)-1]; last != http.StatusTooManyRequests {
		t.Errorf("trigger past burst status = %d, want 429 (all: %v)", last, codes)
	}
	if len(ch) != TriggerBurst {
		t.Errorf("queued triggers = %d, want %d", len(ch), TriggerBurst)
	}
}

// TestHelperFunctions verifies that helper functions create valid metrics
func TestHelperFunctions(t *testing.T) {
	if NewDurationHistogram("test_duration", "Test duration metric") == nil {
		t.Error("NewDurationHistogram returned nil")
	}
	if NewCounter("test_counter", "Test counter metric") == nil {
		t.Error("NewCounter returned nil")
	}
	if NewGauge("test_gauge", "Test gauge metric") == nil {
		t.Error("NewGauge returned nil")
	}
	if NewCounterVec("test_counter_vec", "Test counter vec metric", []string{"label"}) == nil {
		t.Error("NewCounterVec returned nil")
	}
	if NewGaugeVec("test_gauge_vec", "Test gauge vec metric", []string{"label"}) == nil {
		t.Error("NewGaugeVec returned nil")
	}
}
