package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantTitle  string
		wantOutput string
	}{
		{
			name:  "no front matter",
			input: "# Heading\n\n$e = mc^2$\n",
		},
		{
			name:      "title only",
			input:     "---\ntitle: Lecture 1\n---\n# Body\n",
			wantTitle: "Lecture 1",
		},
		{
			name:       "output override",
			input:      "---\ntitle: Notes\ntexdown:\n  output: lecture-01\n---\nbody\n",
			wantTitle:  "Notes",
			wantOutput: "lecture-01.pdf",
		},
		{
			name:       "output with pdf suffix and dots terminator",
			input:      "---\ntexdown:\n  output: final.pdf\n...\nbody\n",
			wantOutput: "final.pdf",
		},
		{
			name:       "output path is reduced to its base name",
			input:      "---\ntexdown:\n  output: ../../etc/out\n---\n",
			wantOutput: "out.pdf",
		},
		{
			name:  "unterminated block is ignored",
			input: "---\ntitle: Draft\n# no closing delimiter\n",
		},
		{
			name:  "delimiter not on first line",
			input: "\n---\ntitle: Late\n---\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseFrontMatter([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, meta.Title)
			assert.Equal(t, tt.wantOutput, meta.OutputName())
		})
	}
}

func TestParseFrontMatter_Malformed(t *testing.T) {
	_, err := ParseFrontMatter([]byte("---\ntitle: [unclosed\n---\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing front matter")
}

func TestFrontMatter_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(p, []byte("---\ntitle: From disk\n---\n"), 0o644))

	meta, err := FrontMatter(p)
	require.NoError(t, err)
	assert.Equal(t, "From disk", meta.Title)

	_, err = FrontMatter(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorContains(t, err, "reading")
}
