package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/texdown/internal/watch"
)

func TestWatch_RequiresArgs(t *testing.T) {
	_, _, err := executeCommand("watch")
	require.Error(t, err)
}

func TestWatch_NothingToWatch(t *testing.T) {
	bin := fakePandoc(t, "3.1.2")

	_, _, err := executeCommand("--pandoc", bin, "watch", filepath.Join(t.TempDir(), "missing.md"))
	requireExitCode(t, err, 2)
	assert.ErrorIs(t, err, watch.ErrNothingToWatch)
}

func TestWatch_InvalidInterval(t *testing.T) {
	bin := fakePandoc(t, "3.1.2")
	src := writeMarkdown(t, t.TempDir(), "notes.md", "# Notes\n")

	_, _, err := executeCommand("--pandoc", bin, "watch", "--interval", "0s", src)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid interval")
}

func TestWatch_InvalidMissingPolicy(t *testing.T) {
	bin := fakePandoc(t, "3.1.2")
	src := writeMarkdown(t, t.TempDir(), "notes.md", "# Notes\n")

	_, _, err := executeCommand("--pandoc", bin, "watch", "--missing", "forget", src)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid missing-file policy")
}

func TestWatch_InvalidExtension(t *testing.T) {
	bin := fakePandoc(t, "3.1.2")

	_, _, err := executeCommand("--pandoc", bin, "watch", "notes.docx")
	requireExitCode(t, err, 2)
}

func TestWatch_ConvertsOnChange(t *testing.T) {
	bin := fakePandoc(t, "3.1.2")
	src := writeMarkdown(t, t.TempDir(), "notes.md", "# Notes\n")
	out := t.TempDir()
	pdf := filepath.Join(out, "notes.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		stderr string
		err    error
	}

	done := make(chan result, 1)

	go func() {
		_, stderr, err := executeCommandContext(ctx,
			"--pandoc", bin, "watch", "--initial", "--interval", "50ms", "-o", out, src)
		done <- result{stderr: stderr, err: err}
	}()

	// --initial converts once before watching.
	require.Eventually(t, func() bool {
		_, err := os.Stat(pdf)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(pdf))

	now := time.Now()
	require.NoError(t, os.Chtimes(src, now, now))

	require.Eventually(t, func() bool {
		_, err := os.Stat(pdf)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Contains(t, r.stderr, "watching 1 file(s)")
		assert.Contains(t, r.stderr, "(initial) → OK")
		assert.Contains(t, r.stderr, "shutting down watcher")
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not shut down in time")
	}
}
