package library

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, dir string) (*Watcher, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	w, err := NewWatcher(dir, func() { calls.Add(1) }, WatcherOptions{Debounce: testDebounce})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, &calls
}

func TestWatcher_MusicFileCreated(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	writeFiles(t, dir, "a.mp3", "b.mp3")

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(4 * testDebounce)
	assert.Equal(t, int32(1), calls.Load(), "a burst of events is debounced into one call")
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "album"), 0o755))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := calls.Load()
	writeFiles(t, dir, "album/track.flac")
	require.Eventually(t, func() bool { return calls.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Removal(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3")
	_, calls := startWatcher(t, dir)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.mp3")))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	writeFiles(t, dir, ".hidden.mp3", "cover.jpg", "notes.txt", "partial.tmp")

	time.Sleep(6 * testDebounce)
	assert.Zero(t, calls.Load())
}

func TestWatcher_Close(t *testing.T) {
	dir := t.TempDir()
	w, calls := startWatcher(t, dir)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second Close is a no-op")

	writeFiles(t, dir, "a.mp3")
	time.Sleep(4 * testDebounce)
	assert.Zero(t, calls.Load())
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), func() {}, WatcherOptions{})
	require.Error(t, err)
}

func TestWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	w, _ := startWatcher(t, dir)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create music", fsnotify.Event{Name: filepath.Join(dir, "a.mp3"), Op: fsnotify.Create}, true},
		{"write music", fsnotify.Event{Name: filepath.Join(dir, "a.mp3"), Op: fsnotify.Write}, true},
		{"remove music", fsnotify.Event{Name: filepath.Join(dir, "a.ogg"), Op: fsnotify.Remove}, true},
		{"chmod music", fsnotify.Event{Name: filepath.Join(dir, "a.mp3"), Op: fsnotify.Chmod}, false},
		{"hidden", fsnotify.Event{Name: filepath.Join(dir, ".a.mp3"), Op: fsnotify.Create}, false},
		{"temp", fsnotify.Event{Name: filepath.Join(dir, "a.tmp"), Op: fsnotify.Create}, false},
		{"image", fsnotify.Event{Name: filepath.Join(dir, "cover.jpg"), Op: fsnotify.Create}, false},
		{"removed dir", fsnotify.Event{Name: filepath.Join(dir, "album"), Op: fsnotify.Remove}, true},
		{"renamed dir", fsnotify.Event{Name: filepath.Join(dir, "album"), Op: fsnotify.Rename}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}
