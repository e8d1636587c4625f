package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/texdown/internal/config"
	"github.com/hupe1980/texdown/internal/logging"
	"github.com/hupe1980/texdown/internal/pandoc"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that a supported pandoc is installed",
		Long: fmt.Sprintf(`Check locates the pandoc executable (see --pandoc) and verifies that
its version satisfies %q.`, pandoc.MinVersion),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			conv := newConverter(config.FromContext(ctx), logging.FromContext(ctx))
			w := cmd.OutOrStdout()

			path, err := conv.LookPath()
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			fmt.Fprintf(w, "pandoc:   %s\n", path)

			v, err := conv.CheckVersion(ctx, pandoc.MinVersion)
			if v != nil {
				fmt.Fprintf(w, "version:  %s\n", v)
			}

			fmt.Fprintf(w, "required: %s\n", pandoc.MinVersion)

			if err != nil {
				if errors.Is(err, pandoc.ErrUnsupportedVersion) {
					fmt.Fprintln(w, "status:   unsupported")
				}

				return &ExitError{Code: 1, Err: err}
			}

			fmt.Fprintln(w, "status:   OK")

			return nil
		},
	}
}
