package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sessmesh/internal/telemetry/logger"
)

func newTestWatcher(t *testing.T, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(WithWatcherLogger(logger.Discard()), WithDebounce(debounce))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: "+level+"\n"), 0o644))
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := newTestWatcher(t, 0)
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "absent", "sessmesh.yaml")))
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(logger.Discard()))
	require.NoError(t, err)
	w.StartAsync()

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_ReportsOnlyWatchedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "sessmesh.yaml")
	writeConfig(t, cfg, "info")

	w := newTestWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.Watch(cfg))

	changed := make(chan string, 8)
	w.OnChange(func(path string) { changed <- path })
	w.StartAsync()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.yaml"), []byte("a: b\n"), 0o644))
	writeConfig(t, cfg, "debug")

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(cfg)
		assert.Equal(t, abs, path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	w := newTestWatcher(t, 50*time.Millisecond)
	abs, err := filepath.Abs(filepath.Join(t.TempDir(), "sessmesh.yaml"))
	require.NoError(t, err)
	w.files[abs] = struct{}{}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })

	for range 10 {
		w.schedule(abs)
	}
	w.schedule(abs + ".other")

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst should yield one notification")
}

func TestWatcher_StopDropsPending(t *testing.T) {
	w := newTestWatcher(t, 50*time.Millisecond)
	abs, err := filepath.Abs("sessmesh.yaml")
	require.NoError(t, err)
	w.files[abs] = struct{}{}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })

	w.schedule(abs)
	require.NoError(t, w.Stop())
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())

	w.schedule(abs)
	assert.Empty(t, w.pending)
}
