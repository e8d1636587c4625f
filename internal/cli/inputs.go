package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/texdown/internal/config"
	"github.com/hupe1980/texdown/internal/document"
	"github.com/hupe1980/texdown/internal/logging"
	"github.com/hupe1980/texdown/internal/pandoc"
	"github.com/hupe1980/texdown/internal/pathformatter"
)

// resolveInputs expands the command-line patterns into Markdown files and
// validates them together with the configured output directory. Directory
// and glob arguments contribute only their Markdown files; a file named
// explicitly must itself be Markdown.
func resolveInputs(args []string, cfg *config.Config) ([]string, error) {
	files, err := pathformatter.ExpandAll(args, pathformatter.WithMatchFilter(document.IsMarkdown))
	if err != nil {
		return nil, usageError(err)
	}

	if len(files) == 0 {
		return nil, usageError(errors.New("no input files matched"))
	}

	if err := document.ValidateFiles(files); err != nil {
		return nil, usageError(fmt.Errorf("%w (supported: %v)", err, document.ValidExtensions))
	}

	if err := document.ValidateOutputDir(cfg.Output); err != nil {
		return nil, usageError(err)
	}

	return files, nil
}

// newConverter builds a pandoc converter from the resolved configuration.
func newConverter(cfg *config.Config, logger *slog.Logger) *pandoc.Converter {
	return pandoc.New(
		pandoc.WithBinary(cfg.Pandoc),
		pandoc.WithOutputDir(cfg.Output),
		pandoc.WithPDFEngine(cfg.PDFEngine),
		pandoc.WithLogger(logging.Component(logger, "pandoc")),
	)
}
