// Package cli defines the Cobra command tree for tempsweep.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tempsweep/internal/exitcodes"
	"tempsweep/internal/safety"
)

const defaultConfigPath = "/etc/tempsweep/config.yaml"

// usageError marks bad flags or arguments
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// configError marks a configuration that could not be loaded
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// runtimeError marks a daemon failure after startup
type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

// Execute runs the root command and returns the exit code.
func Execute(ctx context.Context, version string) int {
	return execute(ctx, newRootCmd(version), os.Stderr)
}

func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitcodes.Success
	}

	fmt.Fprintf(stderr, "tempsweep: %s\n", err) //nolint:errcheck // best-effort stderr write
	return exitCode(err)
}

func exitCode(err error) int {
	var usageErr *usageError
	var configErr *configError
	var runtimeErr *runtimeError

	switch {
	case errors.As(err, &usageErr), errors.As(err, &configErr):
		return exitcodes.InvalidConfig
	case safety.IsViolation(err):
		return exitcodes.SafetyViolation
	case errors.As(err, &runtimeErr):
		return exitcodes.RuntimeError
	default:
		return exitcodes.Failure
	}
}

// newRootCmd creates the root Cobra command with all subcommands registered.
func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tempsweep",
		Short: "Housekeeping for temporary files and scratch directories",
		Long: `Keep scratch directories bounded. A directory is only purged when it
holds a sentinel file (.temporary by default); entries older than the
expiry age are removed first, then the oldest entries beyond the file cap.
Files that are still open when deleted can be marked and reclaimed by a
later sweep.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print every removed or marked entry")

	rootCmd.AddCommand(
		newRunCmd(),
		newPurgeCmd(),
		newSweepCmd(),
		newDeleteCmd(),
		newCodeCmd(),
	)

	return rootCmd
}
