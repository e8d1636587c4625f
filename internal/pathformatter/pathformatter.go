// Package pathformatter turns command-line path arguments (home-relative
// paths, glob patterns and directories) into a flat list of file paths.
package pathformatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// homeDir is replaced in tests.
var homeDir = os.UserHomeDir

// Expand resolves a single argument:
//
//   - a leading "~" is replaced by the user's home directory;
//   - a glob pattern expands to the regular files it matches, sorted;
//   - an existing directory expands to the regular files directly inside it;
//   - anything else is returned unchanged, whether it exists or not.
func Expand(pattern string) ([]string, error) {
	paths, _, err := expand(pattern)
	return paths, err
}

// expand also reports whether pattern was taken literally rather than
// matched against the filesystem.
func expand(pattern string) ([]string, bool, error) {
	p, err := expandTilde(pattern)
	if err != nil {
		return nil, false, err
	}

	if hasMeta(p) {
		matches, globErr := filepath.Glob(p)
		if globErr != nil {
			return nil, false, fmt.Errorf("expanding %q: %w", pattern, globErr)
		}

		return regularFiles(matches), false, nil
	}

	if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
		files, dirErr := dirFiles(p)
		return files, false, dirErr
	}

	return []string{p}, true, nil
}

// Option configures ExpandAll.
type Option func(*options)

type options struct {
	keep func(path string) bool
}

// WithMatchFilter drops glob and directory matches for which keep returns
// false. Literal paths are never filtered.
func WithMatchFilter(keep func(path string) bool) Option {
	return func(o *options) {
		o.keep = keep
	}
}

// ExpandAll expands every pattern and returns the combined list with
// duplicates removed, keeping the first occurrence.
func ExpandAll(patterns []string, opts ...Option) ([]string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	seen := make(map[string]bool)

	var out []string

	for _, pattern := range patterns {
		paths, literal, err := expand(pattern)
		if err != nil {
			return nil, err
		}

		for _, p := range paths {
			if seen[p] {
				continue
			}

			if !literal && o.keep != nil && !o.keep(p) {
				continue
			}

			seen[p] = true
			out = append(out, p)
		}
	}

	return out, nil
}

func expandTilde(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		return p, nil
	}

	home, err := homeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory for %q: %w", p, err)
	}

	return filepath.Join(home, p[1:]), nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[`)
}

func dirFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	return files, nil
}

func regularFiles(paths []string) []string {
	files := make([]string, 0, len(paths))

	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			files = append(files, p)
		}
	}

	sort.Strings(files)

	return files
}
