package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tempsweep/internal/config"
	"tempsweep/internal/safety"
	"tempsweep/internal/tempfiles"
)

type deleteOutput struct {
	Path   string `json:"path"`
	Status string `json:"status"` // deleted, marked, kept, failed
	Error  string `json:"error,omitempty"`
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Delete files, optionally marking locked ones for a later sweep",
		Long: `Delete each path with the chosen mode:

  delete              fail if the path cannot be removed
  try-delete          ignore failures
  try-delete-or-mark  leave a .delete marker next to files that survive

Paths must live under an allowed root: every --root given, otherwise the
directories in the configuration file, otherwise the system temp dir.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modeName, _ := cmd.Flags().GetString("mode")
			mode, err := tempfiles.ParseDeleteMode(modeName)
			if err != nil {
				return &usageError{err}
			}

			roots, _ := cmd.Flags().GetStringSlice("root")
			validator, err := deleteValidator(cmd, roots)
			if err != nil {
				return err
			}

			return runDelete(cmd, validator, mode, args)
		},
	}

	cmd.Flags().StringP("mode", "m", tempfiles.ModeDelete.String(), "Delete mode: delete, try-delete, or try-delete-or-mark")
	cmd.Flags().StringSlice("root", nil, "Allowed root for targets (repeatable)")
	addFSFlags(cmd)

	return cmd
}

func deleteValidator(cmd *cobra.Command, roots []string) (*safety.Validator, error) {
	if len(roots) > 0 {
		return safety.NewValidator(roots, nil), nil
	}

	path, _ := cmd.Flags().GetString("config")
	if cfg, err := config.Load(path); err == nil {
		return safety.NewValidator(cfg.Roots(), cfg.ProtectedPaths), nil
	} else if cmd.Flags().Changed("config") {
		return nil, &configError{err}
	}
	return safety.NewValidator([]string{os.TempDir()}, nil), nil
}

func runDelete(cmd *cobra.Command, v *safety.Validator, mode tempfiles.DeleteMode, paths []string) error {
	fsys := fsFromFlags(cmd)
	j := newJanitor(cmd, fsys)

	var errs []error
	results := make([]deleteOutput, 0, len(paths))
	for _, p := range paths {
		res := deleteOutput{Path: p}

		err := v.ValidateDeleteTarget(p)
		if err != nil {
			err = fmt.Errorf("refusing %s: %w", p, err)
		} else {
			err = j.DeleteWith(p, mode)
		}

		switch {
		case err != nil:
			res.Status = "failed"
			res.Error = err.Error()
			errs = append(errs, err)
		case !fsys.Exists(p):
			res.Status = "deleted"
		case fsys.Exists(tempfiles.MarkerPath(p)):
			res.Status = "marked"
		default:
			res.Status = "kept"
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if jsonEnabled(cmd) {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Status == "failed" {
				continue
			}
			fmt.Fprintf(out, "%s %s\n", r.Status, r.Path) //nolint:errcheck
		}
	}

	return errors.Join(errs...)
}
