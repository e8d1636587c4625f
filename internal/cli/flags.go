package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/texdown/internal/config"
	"github.com/hupe1980/texdown/internal/fileobserver"
)

// The flags below are bound into the config by config.Load; commands read
// the resolved values from the config in the command context.

// registerOutputFlags adds the conversion output flags to a cobra command.
func registerOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "output directory for PDFs (default: current directory)")
	f.String("pdf-engine", "", "LaTeX engine passed to pandoc (e.g. xelatex, lualatex)")
}

// registerWatchFlags adds the polling and notification flags to a cobra command.
func registerWatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("interval", config.DefaultInterval, "time between modification checks")
	f.String("missing", fileobserver.MissingRetain.String(), "what to do with files that disappear: retain, drop")
	f.Bool("notify", false, "also react to filesystem notifications")
	f.Duration("debounce", config.DefaultDebounce, "quiet period for filesystem notifications")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
}
