package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"tempsweep/internal/config"
	"tempsweep/internal/database"
	"tempsweep/internal/disk"
	"tempsweep/internal/fsops"
	"tempsweep/internal/limiter"
	"tempsweep/internal/logging"
	"tempsweep/internal/metrics"
	"tempsweep/internal/safety"
	"tempsweep/internal/tempfiles"
)

// staleMountTimeout bounds the stat probe run before each directory
const staleMountTimeout = 5 * time.Second

var errStaleMount = errors.New("stale or unresponsive mount")

// Recorder stores one history row per pass. *database.HistoryDB satisfies it.
type Recorder interface {
	RecordRun(database.RunRecord) error
}

// Runner purges and sweeps every configured directory once per cycle
type Runner struct {
	cfg       *config.Config
	janitor   *tempfiles.Janitor
	validator *safety.Validator
	logger    logging.Leveled
	history   Recorder
	cpu       *limiter.CPULimiter
	now       func() time.Time

	mu      sync.Mutex
	lastErr error
}

// Option configures a Runner
type Option func(*runnerOptions)

type runnerOptions struct {
	fsys    fsops.FS
	now     func() time.Time
	history Recorder
}

// WithFS replaces the OS filesystem
func WithFS(fsys fsops.FS) Option {
	return func(o *runnerOptions) { o.fsys = fsys }
}

// WithClock replaces time.Now for age comparisons and history timestamps
func WithClock(now func() time.Time) Option {
	return func(o *runnerOptions) { o.now = now }
}

// WithHistory records each pass to r
func WithHistory(r Recorder) Option {
	return func(o *runnerOptions) { o.history = r }
}

// NewRunner builds a Runner for cfg. Metrics are initialized as a side effect.
func NewRunner(cfg *config.Config, logger *log.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = log.Default()
	}

	o := runnerOptions{
		fsys: fsops.OSFS{
			Recursive:    cfg.CleanupOptions.Recursive,
			UseBirthTime: cfg.CleanupOptions.UseBirthTime,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	metrics.Init()
	leveled := logging.NewLeveled(logger)

	r := &Runner{
		cfg:       cfg,
		validator: safety.NewValidator(cfg.Roots(), cfg.ProtectedPaths),
		logger:    leveled,
		history:   o.history,
		now:       o.now,
		janitor: tempfiles.NewJanitor(o.fsys,
			tempfiles.WithClock(o.now),
			tempfiles.WithObserver(tempfiles.MultiObserver(metrics.Observer{}, logObserver{leveled})),
		),
	}
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		r.cpu = limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
	}
	return r, nil
}

// Healthy reports whether the last cycle finished without errors
func (r *Runner) Healthy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr == nil
}

// RunOnce runs one cycle over every directory. A failing directory does
// not stop the others; all failures are joined into the returned error.
func (r *Runner) RunOnce(ctx context.Context) error {
	start := r.now()
	var errs []error

	for _, rule := range r.cfg.Directories {
		select {
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return r.finish(start, errs)
		default:
		}

		if err := r.runDirectory(rule); err != nil {
			metrics.ErrorsTotal.Inc()
			metrics.SetDirectoryHealth(rule.Path, false)
			r.logger.Error("directory pass failed", "dir", rule.Path, "error", err)
			errs = append(errs, err)
		} else {
			metrics.SetDirectoryHealth(rule.Path, true)
		}

		if r.cpu != nil {
			r.cpu.Throttle()
		}
	}

	return r.finish(start, errs)
}

func (r *Runner) finish(start time.Time, errs []error) error {
	err := errors.Join(errs...)

	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	metrics.RecordRun()
	r.logger.Info("cycle complete", "directories", len(r.cfg.Directories), "errors", len(errs), "duration", r.now().Sub(start))
	return err
}

func (r *Runner) runDirectory(rule config.DirectoryRule) error {
	if err := r.validator.ValidatePurgeRoot(rule.Path); err != nil {
		err = fmt.Errorf("refusing %s: %w", rule.Path, err)
		r.record(database.RunRecord{Directory: rule.Path, Action: database.ActionError, ErrorMessage: err.Error()})
		return err
	}

	if disk.IsNFSStale(rule.Path, staleMountTimeout) {
		err := fmt.Errorf("%s: %w", rule.Path, errStaleMount)
		r.record(database.RunRecord{Directory: rule.Path, Action: database.ActionError, ErrorMessage: err.Error()})
		return err
	}
	if pct, err := disk.GetFreePercent(rule.Path); err == nil {
		metrics.UpdateFreeSpacePercent(rule.Path, pct)
	}

	policy := rule.Policy()
	start := time.Now()
	res, err := r.janitor.Purge(rule.Path, policy)
	metrics.RecordPass("purge", time.Since(start))
	if err != nil {
		r.record(database.RunRecord{Directory: rule.Path, Action: database.ActionError, ErrorMessage: err.Error()})
		return err
	}

	if res.Skipped {
		metrics.RecordSkipped(rule.Path)
		r.logger.Warn("sentinel missing, purge skipped", "dir", rule.Path, "check_file", policy.CheckFileName)
		r.record(database.RunRecord{Directory: rule.Path, Action: database.ActionSkip})
	} else {
		r.logger.Info("purge complete", "dir", rule.Path, "expired", res.Expired, "evicted", res.Evicted, "failed", res.Failed)
		r.record(database.RunRecord{
			Directory: rule.Path,
			Action:    database.ActionPurge,
			Expired:   res.Expired,
			Evicted:   res.Evicted,
			Failed:    res.Failed,
		})
	}

	if !rule.Sweep() {
		return nil
	}

	start = time.Now()
	sweep, err := r.janitor.TryDeleteMarkedFiles(rule.Path)
	metrics.RecordPass("sweep", time.Since(start))
	if err != nil {
		r.record(database.RunRecord{Directory: rule.Path, Action: database.ActionError, ErrorMessage: err.Error()})
		return fmt.Errorf("sweep %s: %w", rule.Path, err)
	}
	if sweep.Markers > 0 {
		r.logger.Info("sweep complete", "dir", rule.Path, "markers", sweep.Markers, "reclaimed", sweep.Reclaimed,
			"stale", sweep.Stale, "orphaned", sweep.Orphaned, "failed", sweep.Failed)
	}
	r.record(database.RunRecord{
		Directory: rule.Path,
		Action:    database.ActionSweep,
		Reclaimed: sweep.Reclaimed,
		Stale:     sweep.Stale,
		Orphaned:  sweep.Orphaned,
		Failed:    sweep.Failed,
	})
	return nil
}

// record never fails the pass; history is best effort
func (r *Runner) record(rec database.RunRecord) {
	if r.history == nil {
		return
	}
	rec.Timestamp = r.now()
	if err := r.history.RecordRun(rec); err != nil {
		metrics.ErrorsTotal.Inc()
		r.logger.Error("failed to record history", "dir", rec.Directory, "error", err)
	}
}

// Run runs a cycle immediately, then on every interval tick and every
// value received on trigger, until ctx is cancelled
func (r *Runner) Run(ctx context.Context, trigger <-chan os.Signal) error {
	r.cycle(ctx, "startup")

	ticker := time.NewTicker(r.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			r.cycle(ctx, "interval")
		case sig := <-trigger:
			r.logger.Info("manual trigger received", "signal", sig)
			r.cycle(ctx, "signal")
		}
	}
}

func (r *Runner) cycle(ctx context.Context, trigger string) {
	metrics.CyclesTotal.WithLabelValues(trigger).Inc()
	if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("error running cycle", "trigger", trigger, "error", err)
	}
}

// logObserver writes per-item housekeeping events to the daemon log
type logObserver struct {
	logger logging.Leveled
}

func (o logObserver) Removed(path string, reason tempfiles.Reason) {
	o.logger.Info("removed", "path", path, "reason", reason)
}

func (o logObserver) Marked(path string) {
	o.logger.Info("marked for deletion", "path", path)
}

func (o logObserver) Failed(path, op string, err error) {
	o.logger.Warn("skipped", "path", path, "op", op, "error", err)
}
