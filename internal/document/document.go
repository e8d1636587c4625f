// Package document validates Markdown sources and derives the PDF output
// path for each of them.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrInvalidExtension is returned for files that are not Markdown.
	ErrInvalidExtension = errors.New("invalid file extension")

	// ErrInvalidOutputDir is returned when the output directory does not
	// exist or is not a directory.
	ErrInvalidOutputDir = errors.New("invalid output directory")
)

// ValidExtensions lists the accepted Markdown file extensions, without the
// leading dot. Matching is case-sensitive.
var ValidExtensions = []string{
	"markdown",
	"mdown",
	"mkdn",
	"md",
	"mkd",
	"mdwn",
	"mdtxt",
	"mdtext",
	"text",
	"Rmd",
}

// IsMarkdown reports whether path has one of the ValidExtensions.
func IsMarkdown(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}

	return slices.Contains(ValidExtensions, ext)
}

// ValidateFiles returns an error wrapping ErrInvalidExtension for the first
// path that is not a Markdown file.
func ValidateFiles(paths []string) error {
	for _, p := range paths {
		if !IsMarkdown(p) {
			return fmt.Errorf("%w: %s", ErrInvalidExtension, p)
		}
	}

	return nil
}

// ValidateOutputDir checks that dir exists and is a directory. An empty dir
// means the current working directory and is always valid.
func ValidateOutputDir(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOutputDir, dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidOutputDir, dir)
	}

	return nil
}

// OutputPath returns the PDF path for src inside outDir: the base name of
// src with its extension replaced by ".pdf".
func OutputPath(outDir, src string) string {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, name+".pdf")
}
