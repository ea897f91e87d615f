package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/tunes/internal/state"
)

// writeFiles creates empty files under dir. Content is never decoded.
func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"b.FLAC",
		"a.mp3",
		"notes.txt",
		".hidden.mp3",
		".git/d.mp3",
		"sub/c.ogg",
		"sub/deeper/e.wav",
	)

	songs, err := Scan(dir, nil)
	require.NoError(t, err)

	want := []state.Song{
		{Name: "a", Loc: filepath.Join(dir, "a.mp3")},
		{Name: "b", Loc: filepath.Join(dir, "b.FLAC")},
		{Name: "c", Loc: filepath.Join(dir, "sub", "c.ogg")},
		{Name: "e", Loc: filepath.Join(dir, "sub", "deeper", "e.wav")},
	}
	assert.Equal(t, want, songs)
}

func TestScan_SkipsKnown(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3", "b.mp3")

	songs, err := Scan(dir, map[string]bool{filepath.Join(dir, "a.mp3"): true})
	require.NoError(t, err)

	require.Len(t, songs, 1)
	assert.Equal(t, "b", songs[0].Name)
}

func TestScan_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "file.mp3")

	_, err := Scan(filepath.Join(dir, "missing"), nil)
	require.Error(t, err)

	_, err = Scan(filepath.Join(dir, "file.mp3"), nil)
	require.Error(t, err, "a file is not a music folder")
}

func TestScan_EmptyFolder(t *testing.T) {
	songs, err := Scan(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3", "b.mp3", "sub/c.ogg")

	doc := state.NewDocument()
	doc.Songs = map[string]state.Song{
		"song0": {Name: "gone", Loc: filepath.Join(dir, "gone.mp3")},
		"song1": {Name: "elsewhere", Loc: "/elsewhere/x.mp3"},
		"song2": {Name: "a", Loc: filepath.Join(dir, "a.mp3")},
	}
	store := state.NewMock(doc)

	stats, err := Sync(store, dir)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Found)
	assert.Equal(t, []string{"song0"}, stats.Removed)
	assert.Equal(t, []string{"song3", "song4"}, stats.Added)

	got, err := store.Load()
	require.NoError(t, err)
	assert.NotContains(t, got.Songs, "song0")
	assert.Contains(t, got.Songs, "song1", "songs outside the folder are kept")
	assert.Equal(t, filepath.Join(dir, "b.mp3"), got.Songs["song3"].Loc)
	assert.Equal(t, filepath.Join(dir, "sub", "c.ogg"), got.Songs["song4"].Loc)
}

func TestSync_SingleWrite(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "new.mp3")

	doc := state.NewDocument()
	doc.Songs = map[string]state.Song{"song0": {Name: "gone", Loc: filepath.Join(dir, "gone.mp3")}}

	t.Run("one merge", func(t *testing.T) {
		store := state.NewMock(doc)

		_, err := Sync(store, dir)
		require.NoError(t, err)

		calls := store.MergeCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"song0"}, calls[0].RemoveSongs)
		require.Len(t, calls[0].NewSongs, 1)
		assert.Equal(t, filepath.Join(dir, "new.mp3"), calls[0].NewSongs[0].Loc)
	})

	t.Run("failed write keeps removals", func(t *testing.T) {
		store := state.NewMock(doc)
		store.SetMergeError(errors.New("disk full"))

		_, err := Sync(store, dir)
		var perr *state.PersistenceError
		require.ErrorAs(t, err, &perr)

		got, err := store.Load()
		require.NoError(t, err)
		assert.Contains(t, got.Songs, "song0", "nothing was removed")
		assert.Len(t, got.Songs, 1)
	})
}

func TestSync_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp3")

	doc := state.NewDocument()
	doc.Songs = map[string]state.Song{"song1": {Name: "a", Loc: filepath.Join(dir, "a.mp3")}}
	store := state.NewMock(doc)

	stats, err := Sync(store, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Found)
	assert.Empty(t, stats.Added)
	assert.Empty(t, stats.Removed)
	assert.Empty(t, store.MergeCalls())
}

func TestUnderDir(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/music/a.mp3", true},
		{"/music/sub/a.mp3", true},
		{"/musical/a.mp3", false},
		{"/other/a.mp3", false},
		{"/music/../a.mp3", false},
		{"relative.mp3", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, underDir("/music", tt.path))
		})
	}
}
