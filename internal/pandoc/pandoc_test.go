package pandoc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Fake executor
// ---------------------------------------------------------------------------

type call struct {
	name string
	args []string
}

type fakeExecutor struct {
	mu sync.Mutex

	lookPathErr error
	output      []byte
	runErr      error
	calls       []call
	deadlines   []bool
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.lookPathErr != nil {
		return "", f.lookPathErr
	}

	return "/usr/bin/" + file, nil
}

func (f *fakeExecutor) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	f.calls = append(f.calls, call{name: name, args: args})
	f.deadlines = append(f.deadlines, hasDeadline)

	return f.output, f.runErr
}

func newTestConverter(f *fakeExecutor, opts ...Option) *Converter {
	c := New(opts...)
	c.exec = f

	return c
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	return p
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultBinary, c.Binary())
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Empty(t, c.outputDir)
	assert.NotNil(t, c.logger)
}

func TestNew_Options(t *testing.T) {
	c := New(
		WithBinary("/opt/pandoc/bin/pandoc"),
		WithOutputDir("out"),
		WithPDFEngine("xelatex"),
		WithTimeout(time.Second),
		WithBinary(""),
		WithTimeout(0),
	)

	assert.Equal(t, "/opt/pandoc/bin/pandoc", c.Binary())
	assert.Equal(t, "out", c.outputDir)
	assert.Equal(t, "xelatex", c.pdfEngine)
	assert.Equal(t, time.Second, c.timeout)
}

// ---------------------------------------------------------------------------
// Convert
// ---------------------------------------------------------------------------

func TestConvert_Args(t *testing.T) {
	src := writeSource(t, "notes.md", "# Notes\n")
	f := &fakeExecutor{}

	out, err := newTestConverter(f, WithOutputDir("build")).Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("build", "notes.pdf"), out)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "/usr/bin/pandoc", f.calls[0].name)
	assert.Equal(t, []string{src, "-o", filepath.Join("build", "notes.pdf")}, f.calls[0].args)
	assert.True(t, f.deadlines[0], "conversion must run with a timeout")
}

func TestConvert_PDFEngine(t *testing.T) {
	src := writeSource(t, "notes.md", "# Notes\n")
	f := &fakeExecutor{}

	_, err := newTestConverter(f, WithPDFEngine("lualatex")).Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, f.calls[0].args, "--pdf-engine=lualatex")
}

func TestConvert_FrontMatterOutputOverride(t *testing.T) {
	src := writeSource(t, "notes.md", "---\ntexdown:\n  output: lecture-01\n---\n# Notes\n")
	f := &fakeExecutor{}

	out, err := newTestConverter(f, WithOutputDir("build")).Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("build", "lecture-01.pdf"), out)
}

func TestConvert_BrokenFrontMatterFallsBack(t *testing.T) {
	src := writeSource(t, "notes.md", "---\ntitle: [oops\n---\n")
	c := newTestConverter(&fakeExecutor{})

	assert.Equal(t, "notes.pdf", c.OutputPath(src))
}

func TestConvert_NotFound(t *testing.T) {
	f := &fakeExecutor{lookPathErr: errors.New("executable file not found in $PATH")}

	_, err := newTestConverter(f).Convert(context.Background(), "notes.md")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.calls)
}

func TestConvert_FailureIncludesOutput(t *testing.T) {
	src := writeSource(t, "notes.md", "$\\frac{1}{$\n")
	f := &fakeExecutor{
		output: []byte("Error producing PDF.\n! Missing } inserted.\n"),
		runErr: errors.New("exit status 43"),
	}

	_, err := newTestConverter(f).Convert(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converting")
	assert.Contains(t, err.Error(), "exit status 43")
	assert.Contains(t, err.Error(), "Missing } inserted")
}

func TestConvert_FailureWithoutOutput(t *testing.T) {
	src := writeSource(t, "notes.md", "x")
	f := &fakeExecutor{runErr: errors.New("signal: killed")}

	_, err := newTestConverter(f).Convert(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, "converting "+src+": signal: killed", err.Error())
}

// ---------------------------------------------------------------------------
// Version
// ---------------------------------------------------------------------------

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{"three components", "pandoc 2.19.2\nCompiled with pandoc-types 1.22.2.1\n", "2.19.2", false},
		{"four components", "pandoc 3.1.11.1\nFeatures: +server +lua\n", "3.1.11", false},
		{"two components", "pandoc 2.5\n", "2.5.0", false},
		{"windows binary", "pandoc.exe 3.1.2\n", "3.1.2", false},
		{"leading whitespace", "\n  pandoc 3.0\n", "3.0.0", false},
		{"garbage", "command not found", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVersion([]byte(tt.output))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestVersion(t *testing.T) {
	f := &fakeExecutor{output: []byte("pandoc 3.1.2\n")}

	v, err := newTestConverter(f).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.1.2", v.String())
	assert.Equal(t, []string{"--version"}, f.calls[0].args)
}

func TestVersion_RunError(t *testing.T) {
	f := &fakeExecutor{runErr: errors.New("exit status 1")}

	_, err := newTestConverter(f).Version(context.Background())
	assert.ErrorContains(t, err, "--version")
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr error
	}{
		{"modern", "pandoc 3.1.2\n", nil},
		{"exact minimum", "pandoc 2.0\n", nil},
		{"too old", "pandoc 1.19.2.1\n", ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeExecutor{output: []byte(tt.output)}

			v, err := newTestConverter(f).CheckVersion(context.Background(), MinVersion)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.NotNil(t, v)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestCheckVersion_BadConstraint(t *testing.T) {
	_, err := newTestConverter(&fakeExecutor{}).CheckVersion(context.Background(), "not a constraint")
	assert.ErrorContains(t, err, "parsing version constraint")
}

func TestCheckVersion_NotFound(t *testing.T) {
	f := &fakeExecutor{lookPathErr: errors.New("missing")}

	_, err := newTestConverter(f).CheckVersion(context.Background(), MinVersion)
	assert.ErrorIs(t, err, ErrNotFound)
}
