package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tempsweep/internal/config"
	"tempsweep/internal/database"
	"tempsweep/internal/logging"
	"tempsweep/internal/metrics"
	"tempsweep/internal/scheduler"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the housekeeping daemon over the configured directories",
		Long: `Purge and sweep every configured directory now and then on every
interval. SIGUSR1 or POST /trigger on the metrics port starts an extra
cycle. With --once a single cycle runs and no metrics server is started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			once, _ := cmd.Flags().GetBool("once")
			return runDaemon(cmd.Context(), path, once)
		},
	}

	cmd.Flags().Bool("once", false, "Run one cycle and exit")

	return cmd
}

func runDaemon(ctx context.Context, configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &configError{err}
	}

	logger := logging.NewWithConfig(cfg)
	logger.Println("tempsweep starting")
	logger.Printf("config file: %s", configPath)

	metrics.Init()
	if !once && cfg.Prometheus.Port > 0 {
		logger.Printf("starting Prometheus metrics on %s", cfg.PrometheusAddress())
		metrics.StartServer(cfg.PrometheusAddress(), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(shutdownCtx, logger)
		}()
	}

	var opts []scheduler.Option
	if cfg.HistoryEnabled() {
		logger.Printf("opening history database: %s", cfg.DatabasePath)
		db, err := database.NewHistoryDB(cfg.DatabasePath)
		if err != nil {
			return &runtimeError{err}
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: failed to close database: %v", err)
			}
		}()
		opts = append(opts, scheduler.WithHistory(db))
	}

	runner, err := scheduler.NewRunner(cfg, logger, opts...)
	if err != nil {
		return &runtimeError{err}
	}
	metrics.SetHealthFunc(runner.Healthy)

	if once {
		if err := runner.RunOnce(ctx); err != nil {
			return &runtimeError{err}
		}
		logger.Println("cycle completed successfully")
		return nil
	}

	trigger := make(chan os.Signal, 1)
	signal.Notify(trigger, syscall.SIGUSR1)
	defer signal.Stop(trigger)
	metrics.SetTriggerChannel(trigger)

	logger.Printf("scheduler started, interval %s", cfg.Interval())
	if err := runner.Run(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
		return &runtimeError{err}
	}

	logger.Println("tempsweep stopped")
	return nil
}
