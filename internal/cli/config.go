package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/texdown/internal/config"
	"github.com/hupe1980/texdown/internal/logging"
	"github.com/hupe1980/texdown/internal/output"
)

// configView is the printable form of config.Config. Durations are
// rendered the way they are written in the config file.
type configView struct {
	LogLevel  string `yaml:"log-level"`
	LogFormat string `yaml:"log-format"`
	Quiet     bool   `yaml:"quiet"`
	Pandoc    string `yaml:"pandoc"`
	PDFEngine string `yaml:"pdf-engine,omitempty"`
	Output    string `yaml:"output"`
	Interval  string `yaml:"interval"`
	Missing   string `yaml:"missing"`
	Notify    bool   `yaml:"notify"`
	Debounce  string `yaml:"debounce"`

	MetricsAddr string `yaml:"metrics-addr,omitempty"`
}

func newConfigView(cfg *config.Config) configView {
	return configView{
		LogLevel:  cfg.LogLevel,
		LogFormat: cfg.LogFormat,
		Quiet:     cfg.Quiet,
		Pandoc:    cfg.Pandoc,
		PDFEngine: cfg.PDFEngine,
		Output:    cfg.Output,
		Interval:  cfg.Interval.String(),
		Missing:   cfg.Missing,
		Notify:    cfg.Notify,
		Debounce:  cfg.Debounce.String(),

		MetricsAddr: cfg.MetricsAddr,
	}
}

func newConfigCommand() *cobra.Command {
	var (
		writePath string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration texdown would run with, after merging the
config file, TEXDOWN_* environment variables and command-line flags.
The output is valid .texdown.yaml content; use --write to save it.`,
		Example: `  texdown config
  texdown config --interval 2s --write .texdown.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			data, err := renderConfig(cfg, writePath == "")
			if err != nil {
				return err
			}

			if writePath == "" {
				return output.NewStdoutWriter(cmd.OutOrStdout()).Write(data)
			}

			opts := []output.FileWriterOption{output.WithLogger(logging.FromContext(ctx))}
			if !force {
				opts = append(opts, output.WithNoClobber())
			}

			if err := output.NewFileWriter(writePath, opts...).Write(data); err != nil {
				if errors.Is(err, output.ErrExists) {
					return usageError(fmt.Errorf("%w (use --force to overwrite)", err))
				}

				return err
			}

			if !cfg.Quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", writePath)
			}

			return nil
		},
	}

	registerOutputFlags(cmd)
	registerWatchFlags(cmd)

	f := cmd.Flags()
	f.StringVar(&writePath, "write", "", "write the configuration to this file instead of stdout")
	f.BoolVar(&force, "force", false, "overwrite an existing file with --write")

	return cmd
}

// renderConfig encodes cfg as YAML. withSource prefixes a comment naming
// the config file the values were read from, if any.
func renderConfig(cfg *config.Config, withSource bool) ([]byte, error) {
	var buf bytes.Buffer

	if withSource && cfg.ConfigFile != "" {
		fmt.Fprintf(&buf, "# config file: %s\n", cfg.ConfigFile)
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(newConfigView(cfg)); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return buf.Bytes(), nil
}
