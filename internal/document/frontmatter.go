package document

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// Meta holds the front-matter keys texdown cares about.
type Meta struct {
	// Title is the document title, informational only.
	Title string `yaml:"title"`

	// Texdown carries tool-specific settings.
	Texdown struct {
		// Output overrides the PDF file name (relative to the output
		// directory). A missing ".pdf" suffix is added.
		Output string `yaml:"output"`
	} `yaml:"texdown"`
}

// OutputName returns the sanitised output file name override, or "" when
// the document does not set one.
func (m Meta) OutputName() string {
	name := filepath.Base(strings.TrimSpace(m.Texdown.Output))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return ""
	}

	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}

	return name
}

// FrontMatter reads the YAML front matter at the top of the Markdown file
// at path. A file without front matter yields a zero Meta.
func FrontMatter(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return ParseFrontMatter(data)
}

// ParseFrontMatter extracts and decodes the front matter block of data.
func ParseFrontMatter(data []byte) (Meta, error) {
	var meta Meta

	block, ok := frontMatterBlock(data)
	if !ok {
		return meta, nil
	}

	if err := yaml.Unmarshal(block, &meta); err != nil {
		return Meta{}, fmt.Errorf("parsing front matter: %w", err)
	}

	return meta, nil
}

// frontMatterBlock returns the lines between an opening "---" on the first
// line and the next "---" or "..." line.
func frontMatterBlock(data []byte) ([]byte, bool) {
	sc := bufio.NewScanner(bytes.NewReader(data))

	if !sc.Scan() || strings.TrimRight(sc.Text(), " \t\r") != frontMatterDelimiter {
		return nil, false
	}

	var block bytes.Buffer

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == frontMatterDelimiter || line == "..." {
			return block.Bytes(), true
		}

		block.WriteString(sc.Text())
		block.WriteByte('\n')
	}

	return nil, false
}
