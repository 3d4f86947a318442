package metrics

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

var (
	initOnce       sync.Once
	serverMutex    sync.Mutex
	currentSrv     *http.Server
	triggerChannel chan os.Signal

	// healthFunc reports daemon health for /health; nil means healthy
	healthFunc  func() bool
	healthMutex sync.RWMutex
)

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initPurgeMetrics()
		initDaemonMetrics()

		registerPurgeMetrics()
		registerDaemonMetrics()

		// Expose the timestamp before the first cycle completes
		LastRunTimestamp.Set(0)
	})
}

// SetTriggerChannel sets the channel POST /trigger feeds
func SetTriggerChannel(ch chan os.Signal) {
	serverMutex.Lock()
	defer serverMutex.Unlock()
	triggerChannel = ch
}

// SetHealthFunc installs the check behind /health
func SetHealthFunc(fn func() bool) {
	healthMutex.Lock()
	defer healthMutex.Unlock()
	healthFunc = fn
}

func healthy() bool {
	healthMutex.RLock()
	fn := healthFunc
	healthMutex.RUnlock()
	return fn == nil || fn()
}

// Trigger requests beyond this rate get 429 Too Many Requests
var (
	TriggerRate  = rate.Every(time.Second)
	TriggerBurst = 3
)

// Handler returns the router served by StartServer:
// /metrics (Prometheus), /health, and POST /trigger
func Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if healthy() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","healthy":true}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","healthy":false}`))
	}).Methods(http.MethodGet)

	limiter := rate.NewLimiter(TriggerRate, TriggerBurst)
	r.HandleFunc("/trigger", func(w http.ResponseWriter, _ *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too many triggers", http.StatusTooManyRequests)
			return
		}

		serverMutex.Lock()
		ch := triggerChannel
		serverMutex.Unlock()

		if ch == nil {
			http.Error(w, "Trigger channel not initialized", http.StatusServiceUnavailable)
			return
		}
		select {
		case ch <- syscall.SIGUSR1:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Housekeeping triggered"))
		default:
			http.Error(w, "Trigger channel full", http.StatusServiceUnavailable)
		}
	}).Methods(http.MethodPost)

	return r
}

// StartServer starts the metrics HTTP server on the specified address
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
