package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tempsweep/internal/fsops"
	"tempsweep/internal/tempfiles"
)

func jsonEnabled(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newJanitor builds a Janitor over the real filesystem. With --verbose
// every removal, marker, and skipped failure is echoed to stderr.
func newJanitor(cmd *cobra.Command, fsys fsops.OSFS) *tempfiles.Janitor {
	var opts []tempfiles.Option
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		opts = append(opts, tempfiles.WithObserver(printObserver{w: cmd.ErrOrStderr()}))
	}
	return tempfiles.NewJanitor(fsys, opts...)
}

func fsFromFlags(cmd *cobra.Command) fsops.OSFS {
	recursive, _ := cmd.Flags().GetBool("recursive")
	birth, _ := cmd.Flags().GetBool("birth-time")
	return fsops.OSFS{Recursive: recursive, UseBirthTime: birth}
}

func addFSFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("recursive", false, "Remove expired subdirectories together with their contents")
	cmd.Flags().Bool("birth-time", false, "Age entries by birth time where the filesystem records it")
}

type printObserver struct {
	w io.Writer
}

func (p printObserver) Removed(path string, reason tempfiles.Reason) {
	fmt.Fprintf(p.w, "removed %s (%s)\n", path, reason) //nolint:errcheck
}

func (p printObserver) Marked(path string) {
	fmt.Fprintf(p.w, "marked %s\n", path) //nolint:errcheck
}

func (p printObserver) Failed(path, op string, err error) {
	fmt.Fprintf(p.w, "skipped %s: %s: %v\n", path, op, err) //nolint:errcheck
}
