package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tempsweep/internal/filecode"
)

func newCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Print random file-name-safe codes",
		Long: `Print 13-character codes built from a random 128-bit value. With
--prefix or --ext each code is wrapped into a scratch file name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, _ := cmd.Flags().GetInt("count")
			prefix, _ := cmd.Flags().GetString("prefix")
			ext, _ := cmd.Flags().GetString("ext")
			if n < 1 {
				return &usageError{errors.New("--count must be at least 1")}
			}

			out := cmd.OutOrStdout()
			for i := 0; i < n; i++ {
				name := filecode.RandomFileCode()
				if prefix != "" || ext != "" {
					name = filecode.NewScratchName(prefix, ext)
				}
				fmt.Fprintln(out, name) //nolint:errcheck
			}
			return nil
		},
	}

	cmd.Flags().IntP("count", "n", 1, "Number of codes to print")
	cmd.Flags().String("prefix", "", "Prefix for scratch file names")
	cmd.Flags().String("ext", "", "Extension for scratch file names")

	return cmd
}
