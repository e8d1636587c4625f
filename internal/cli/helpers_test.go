package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// executeCommand is a test helper that runs the CLI with the given args and
// captures both stdout and stderr.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	return executeCommandContext(context.Background(), args...)
}

func executeCommandContext(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)

	return outBuf.String(), errBuf.String(), err
}

// fakePandocScript answers --version with the given release and otherwise
// writes its arguments to the -o target. Targets containing "fail" make it
// exit non-zero.
const fakePandocScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "pandoc %s"
  echo "Features: +server +lua"
  exit 0
fi
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
case "$out" in
  *fail*) echo "Error producing PDF." >&2; echo "! Undefined control sequence." >&2; exit 43 ;;
esac
echo "$@" > "$out"
`

// fakePandoc installs a fake pandoc reporting release and returns its path.
func fakePandoc(t *testing.T, release string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake pandoc is a shell script")
	}

	p := filepath.Join(t.TempDir(), "pandoc")
	require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf(fakePandocScript, release)), 0o755))

	return p
}

// writeMarkdown writes a Markdown file whose modification time lies in the
// past.
func writeMarkdown(t *testing.T, dir, name, content string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(p, past, past))

	return p
}
