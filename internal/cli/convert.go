package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/texdown/internal/config"
	"github.com/hupe1980/texdown/internal/logging"
	"github.com/hupe1980/texdown/internal/pandoc"
)

func newConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <files...>",
		Short: "Convert Markdown files to PDF",
		Long: `Convert one or more Markdown files to PDF with pandoc.

Arguments may be files, directories (their Markdown files are used) or
glob patterns. Each PDF is named after its source file unless the file's
front matter sets texdown.output:

  ---
  title: Lecture 1
  texdown:
    output: lecture-01
  ---`,
		Example: `  texdown convert notes.md
  texdown convert -o build "chapters/*.md"
  texdown convert --pdf-engine xelatex thesis.md`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: markdownArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), cmd, args)
		},
	}

	registerOutputFlags(cmd)
	registerFlagCompletions(cmd)

	return cmd
}

type convertResult struct {
	source string
	output string
	err    error
}

func runConvert(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	files, err := resolveInputs(args, cfg)
	if err != nil {
		return err
	}

	conv := newConverter(cfg, logger)

	v, err := conv.CheckVersion(ctx, pandoc.MinVersion)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	logger.Debug("using pandoc", slog.String("version", v.String()), slog.Int("files", len(files)))

	results := make([]convertResult, 0, len(files))

	for _, f := range files {
		res := convertResult{source: f}

		if _, statErr := os.Stat(f); statErr != nil {
			res.err = statErr
		} else {
			res.output, res.err = conv.Convert(ctx, f)
		}

		results = append(results, res)

		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}

	failed := printConvertResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results)

	if !cfg.Quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Converted %d of %d file(s)\n", len(results)-failed, len(files))
	}

	if failed > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d conversion(s) failed", failed, len(files))}
	}

	return nil
}

// printConvertResults writes one line per file and returns the number of
// failures.
func printConvertResults(out, errOut io.Writer, results []convertResult) int {
	failed := 0

	for _, r := range results {
		if r.err != nil {
			failed++

			fmt.Fprintf(errOut, "%s → FAILED: %v\n", r.source, r.err)

			continue
		}

		fmt.Fprintf(out, "%s → %s\n", r.source, r.output)
	}

	return failed
}
