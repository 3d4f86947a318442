package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tempsweep/internal/fsops"
	"tempsweep/internal/safety"
	"tempsweep/internal/tempfiles"
)

type purgeOutput struct {
	Directory string `json:"directory"`
	Skipped   bool   `json:"skipped"`
	Expired   int    `json:"expired"`
	Evicted   int    `json:"evicted"`
	Failed    int    `json:"failed"`
}

func newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge <dir>",
		Short: "Remove expired and excess entries from a scratch directory",
		Long: `Remove entries older than --expire, then the oldest entries beyond
--max-files. Nothing is touched unless the directory holds the sentinel
named by --check-file; pass --check-file "" to purge without one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expire, _ := cmd.Flags().GetDuration("expire")
			maxFiles, _ := cmd.Flags().GetInt("max-files")
			check, _ := cmd.Flags().GetString("check-file")
			if expire < 0 {
				return &usageError{errors.New("--expire cannot be negative")}
			}

			return runPurge(cmd, args[0], tempfiles.Policy{
				AutoExpire:    expire,
				MaxFiles:      maxFiles,
				CheckFileName: check,
			})
		},
	}

	cmd.Flags().Duration("expire", 0, "Remove entries created longer ago than this (0 disables)")
	cmd.Flags().Int("max-files", tempfiles.NoFileLimit, "Keep at most this many entries (negative disables)")
	cmd.Flags().String("check-file", tempfiles.DefaultCheckFileName, "Sentinel that must exist in the directory (empty disables)")
	addFSFlags(cmd)

	return cmd
}

func runPurge(cmd *cobra.Command, dir string, policy tempfiles.Policy) error {
	if err := safety.NewValidator(nil, nil).ValidatePurgeRoot(dir); err != nil {
		return fmt.Errorf("refusing %s: %w", dir, err)
	}

	res, err := newJanitor(cmd, fsFromFlags(cmd)).Purge(dir, policy)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonEnabled(cmd) {
		return writeJSON(out, purgeOutput{
			Directory: dir,
			Skipped:   res.Skipped,
			Expired:   res.Expired,
			Evicted:   res.Evicted,
			Failed:    res.Failed,
		})
	}

	if res.Skipped {
		fmt.Fprintf(out, "skipped %s: sentinel %q not found\n", dir, policy.CheckFileName) //nolint:errcheck
		return nil
	}
	fmt.Fprintf(out, "purged %s: expired=%d evicted=%d failed=%d\n", dir, res.Expired, res.Evicted, res.Failed) //nolint:errcheck
	return nil
}

type sweepOutput struct {
	Directory string `json:"directory"`
	Markers   int    `json:"markers"`
	Reclaimed int    `json:"reclaimed"`
	Stale     int    `json:"stale"`
	Orphaned  int    `json:"orphaned"`
	Failed    int    `json:"failed"`
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep <dir>",
		Short: "Reclaim files marked for deletion that have not changed since",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := safety.NewValidator(nil, nil).ValidatePurgeRoot(dir); err != nil {
				return fmt.Errorf("refusing %s: %w", dir, err)
			}

			res, err := newJanitor(cmd, fsops.OSFS{}).TryDeleteMarkedFiles(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonEnabled(cmd) {
				return writeJSON(out, sweepOutput{
					Directory: dir,
					Markers:   res.Markers,
					Reclaimed: res.Reclaimed,
					Stale:     res.Stale,
					Orphaned:  res.Orphaned,
					Failed:    res.Failed,
				})
			}
			fmt.Fprintf(out, "swept %s: markers=%d reclaimed=%d stale=%d orphaned=%d failed=%d\n", //nolint:errcheck
				dir, res.Markers, res.Reclaimed, res.Stale, res.Orphaned, res.Failed)
			return nil
		},
	}
}
