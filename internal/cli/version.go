package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/texdown/internal/logging"
	"github.com/hupe1980/texdown/internal/pandoc"
	"github.com/hupe1980/texdown/internal/version"
)

// pandocProbeTimeout bounds the best-effort pandoc lookup of the version
// command.
const pandocProbeTimeout = 5 * time.Second

func newVersionCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Display the version, git commit, build date, Go version, and platform.
The pandoc version is included when pandoc can be found.`,
		Args: cobra.NoArgs,
		// Override parent PersistentPreRunE: version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			bin, _ := cmd.Flags().GetString("pandoc")
			if v := probePandoc(cmd.Context(), bin); v != "" {
				info = info.WithPandoc(v)
			}

			if jsonOutput {
				j, err := info.JSON()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), j)

				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")

	return cmd
}

// probePandoc returns the installed pandoc version, or "" when it cannot be
// determined.
func probePandoc(ctx context.Context, bin string) string {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, pandocProbeTimeout)
	defer cancel()

	v, err := pandoc.New(pandoc.WithBinary(bin), pandoc.WithLogger(logging.Discard())).Version(ctx)
	if err != nil {
		return ""
	}

	return v.String()
}
