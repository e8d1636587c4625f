// Package pandoc converts Markdown files to PDF by running the pandoc
// binary.
package pandoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/hupe1980/texdown/internal/document"
)

const (
	// DefaultBinary is the pandoc executable looked up on PATH.
	DefaultBinary = "pandoc"

	// DefaultTimeout bounds a single conversion.
	DefaultTimeout = 2 * time.Minute

	// MinVersion is the oldest pandoc release texdown supports.
	MinVersion = ">= 2.0"
)

var (
	// ErrNotFound is returned when the pandoc binary cannot be located.
	ErrNotFound = errors.New("pandoc not found")

	// ErrUnsupportedVersion is returned when pandoc is older than required.
	ErrUnsupportedVersion = errors.New("unsupported pandoc version")
)

var versionPattern = regexp.MustCompile(`(?m)^pandoc(?:\.exe)?\s+v?(\d+(?:\.\d+)*)`)

// executor abstracts process execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Converter runs pandoc for individual source files.
type Converter struct {
	binary    string
	outputDir string
	pdfEngine string
	timeout   time.Duration
	logger    *slog.Logger
	exec      executor
}

// Option configures a Converter.
type Option func(*Converter)

// WithBinary sets the pandoc executable name or path.
func WithBinary(bin string) Option {
	return func(c *Converter) {
		if bin != "" {
			c.binary = bin
		}
	}
}

// WithOutputDir sets the directory PDFs are written to. Empty means the
// current working directory.
func WithOutputDir(dir string) Option {
	return func(c *Converter) {
		c.outputDir = dir
	}
}

// WithPDFEngine passes --pdf-engine to pandoc.
func WithPDFEngine(engine string) Option {
	return func(c *Converter) {
		c.pdfEngine = engine
	}
}

// WithTimeout bounds a single pandoc run.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for the Converter.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		binary:  DefaultBinary,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		exec:    osExecutor{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Binary returns the configured pandoc executable.
func (c *Converter) Binary() string {
	return c.binary
}

// LookPath resolves the pandoc executable.
func (c *Converter) LookPath() (string, error) {
	path, err := c.exec.LookPath(c.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotFound, c.binary, err)
	}

	return path, nil
}

// OutputPath returns the PDF path Convert writes for src. A front-matter
// output override wins over the source base name.
func (c *Converter) OutputPath(src string) string {
	meta, err := document.FrontMatter(src)
	if err != nil {
		c.logger.Debug("ignoring front matter", slog.String("path", src), slog.String("error", err.Error()))
		return document.OutputPath(c.outputDir, src)
	}

	if name := meta.OutputName(); name != "" {
		return document.OutputPath(c.outputDir, name)
	}

	return document.OutputPath(c.outputDir, src)
}

// Convert runs pandoc on src and returns the path of the written PDF.
func (c *Converter) Convert(ctx context.Context, src string) (string, error) {
	bin, err := c.LookPath()
	if err != nil {
		return "", err
	}

	out := c.OutputPath(src)

	args := []string{src, "-o", out}
	if c.pdfEngine != "" {
		args = append(args, "--pdf-engine="+c.pdfEngine)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	c.logger.Debug("running pandoc", slog.String("binary", bin), slog.Any("args", args))

	output, err := c.exec.CombinedOutput(runCtx, bin, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return "", fmt.Errorf("converting %s: %w: %s", src, err, msg)
		}

		return "", fmt.Errorf("converting %s: %w", src, err)
	}

	c.logger.Debug("pandoc finished",
		slog.String("source", src),
		slog.String("output", out),
		slog.Duration("took", time.Since(start)),
	)

	return out, nil
}

// Version runs "pandoc --version" and parses the reported release.
func (c *Converter) Version(ctx context.Context) (*semver.Version, error) {
	bin, err := c.LookPath()
	if err != nil {
		return nil, err
	}

	output, err := c.exec.CombinedOutput(ctx, bin, "--version")
	if err != nil {
		return nil, fmt.Errorf("running %s --version: %w", bin, err)
	}

	return ParseVersion(output)
}

// CheckVersion fails with ErrUnsupportedVersion when the installed pandoc
// does not satisfy constraint (e.g. MinVersion).
func (c *Converter) CheckVersion(ctx context.Context, constraint string) (*semver.Version, error) {
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("parsing version constraint %q: %w", constraint, err)
	}

	v, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}

	if !cons.Check(v) {
		return v, fmt.Errorf("%w: pandoc %s does not satisfy %q", ErrUnsupportedVersion, v, constraint)
	}

	return v, nil
}

// ParseVersion extracts the version from "pandoc --version" output. Pandoc
// uses up to four numeric components (e.g. 2.19.2, 3.1.11.1); components
// past the third are dropped.
func ParseVersion(output []byte) (*semver.Version, error) {
	m := versionPattern.FindSubmatch(bytes.TrimSpace(output))
	if m == nil {
		return nil, fmt.Errorf("unrecognised pandoc version output %q", firstLine(output))
	}

	parts := strings.Split(string(m[1]), ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, fmt.Errorf("parsing pandoc version %q: %w", m[1], err)
	}

	return v, nil
}

func firstLine(b []byte) string {
	line, _, _ := bytes.Cut(bytes.TrimSpace(b), []byte("\n"))
	return string(line)
}
