package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = "log-level: info\ninterval: 5s\nmissing: retain\n"

func TestStdoutWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewStdoutWriter(&buf)

	require.NoError(t, w.Write([]byte(sampleConfig)))
	assert.Equal(t, sampleConfig, buf.String())
}

func TestStdoutWriter_NilDefault(t *testing.T) {
	// When nil is passed, it defaults to os.Stdout; just verify it doesn't panic.
	w := NewStdoutWriter(nil)
	assert.NotNil(t, w)
}

func TestFileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output", ".texdown.yaml")

	w := NewFileWriter(path)
	require.NoError(t, w.Write([]byte(sampleConfig)))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, sampleConfig, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileWriter_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "texdown.yaml")

	w := NewFileWriter(path)
	require.NoError(t, w.Write([]byte("quiet: true\n")))

	assert.FileExists(t, path)
}

func TestFileWriter_CustomPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")

	w := NewFileWriter(path, WithPermissions(0o600))
	require.NoError(t, w.Write([]byte("pandoc: /opt/pandoc\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileWriter_OverwriteExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.yaml")

	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644)) //nolint:gosec // test

	w := NewFileWriter(path)
	require.NoError(t, w.Write([]byte("new")))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestFileWriter_NoClobber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.yaml")

	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644)) //nolint:gosec // test

	err := NewFileWriter(path, WithNoClobber()).Write([]byte("new"))
	require.ErrorIs(t, err, ErrExists)

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestFileWriter_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texdown.yaml")

	require.NoError(t, NewFileWriter(path).Write([]byte(sampleConfig)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "texdown.yaml", entries[0].Name())
}

func TestFileWriter_Path(t *testing.T) {
	w := NewFileWriter("/tmp/texdown.yaml")
	assert.Equal(t, "/tmp/texdown.yaml", w.Path())
}

func TestFileWriter_InvalidPath(t *testing.T) {
	w := NewFileWriter("/dev/null/impossible/path.yaml")
	err := w.Write([]byte("data"))
	assert.Error(t, err)
}
