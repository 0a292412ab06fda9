package internal

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	tt "github.com/treetab/treetab/internal/types"
)

// writeEngine writes a shell script standing in for the engine.
func writeEngine(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	path := filepath.Join(dir, "fake-tgrep2")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "wsj.t2c.gz")
	require.NoError(t, os.WriteFile(path, []byte("corpus"), 0o644))
	return path
}

func TestNewDispatcher(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(DispatcherConfig{Corpus: "wsj.t2c.gz", MatchFlags: DefaultMatchFlags}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tgrep2"}, d.argv)
	assert.Equal(t, []string{"-tafic", "wsj.t2c.gz", "-"}, d.Args("t"))
	assert.Equal(t, []string{"-afic", "wsj.t2c.gz", "-"}, d.Args(""))

	d, err = NewDispatcher(DispatcherConfig{Command: `nice -n 10 "/opt/tgrep 2/tgrep2"`, Corpus: "c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "nice", d.argv[0])
	assert.Equal(t, []string{"-n", "10", "/opt/tgrep 2/tgrep2", "-wtc", "c", "-"}, d.Args("wt"))

	_, err = NewDispatcher(DispatcherConfig{Command: `tgrep2 "unterminated`, Corpus: "c"}, nil)
	assert.Error(t, err)

	_, err = NewDispatcher(DispatcherConfig{}, nil)
	assert.Error(t, err)
}

func TestDispatcherInvoke(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	engine := writeEngine(t, dir, `echo "args:$*"; cat; echo; echo "warning on stderr" >&2`)

	d, err := NewDispatcher(DispatcherConfig{Command: engine, Corpus: "corpus.t2c", MatchFlags: "afi"}, zap.NewNop())
	require.NoError(t, err)

	result, err := d.Invoke(context.Background(), "@M;\n`VP < NP", "u")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "args:-uafic corpus.t2c -\n@M;\n`VP < NP\nwarning on stderr\n", result.Text)
}

func TestDispatcherInvokeExitCode(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	engine := writeEngine(t, dir, `echo "bad pattern" >&2; exit 3`)

	logger, _ := zap.NewProduction()
	d, err := NewDispatcher(DispatcherConfig{Command: engine, Corpus: "c"}, logger)
	require.NoError(t, err)

	result, err := d.Invoke(context.Background(), "VP <", "")
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "bad pattern\n", result.Text)
}

func TestDispatcherInvokeMissingCommand(t *testing.T) {
	t.Parallel()
	d, err := NewDispatcher(DispatcherConfig{Command: filepath.Join(t.TempDir(), "nope"), Corpus: "c"}, nil)
	require.NoError(t, err)

	_, err = d.Invoke(context.Background(), "VP", "")
	assert.Error(t, err)
}

func TestDispatcherInvokeCanceled(t *testing.T) {
	t.Parallel()
	engine := writeEngine(t, t.TempDir(), `sleep 5`)
	d, err := NewDispatcher(DispatcherConfig{Command: engine, Corpus: "c"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Invoke(ctx, "VP", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcherCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	counter := filepath.Join(dir, "calls")
	engine := writeEngine(t, dir, `echo x >> `+counter+`; cat`)
	corpus := writeCorpus(t, dir)

	cache, err := NewCache(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	d, err := NewDispatcher(DispatcherConfig{Command: engine, Corpus: corpus}, nil)
	require.NoError(t, err)
	d.WithCache(cache)

	ctx := context.Background()
	for range 3 {
		result, err := d.Invoke(ctx, "`NP", "t")
		require.NoError(t, err)
		assert.Equal(t, tt.RawResult{Text: "`NP"}, result)
	}
	_, err = d.Invoke(ctx, "`NP", "u")
	require.NoError(t, err)

	calls, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "x\nx\n", string(calls))
	assert.Equal(t, 2, cache.Len())
}
