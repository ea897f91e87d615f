package queue

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/llehouerou/tunes/internal/state"
)

// FromSong converts a library song to a track.
func FromSong(id string, s state.Song) Track {
	t := Track{ID: id, Path: s.Loc, Title: s.Name}
	if s.Length != nil && *s.Length > 0 {
		t.Length = time.Duration(*s.Length * float64(time.Second))
	}
	if t.Title == "" {
		t.Title = titleFromPath(s.Loc)
	}
	return t
}

// FromPlaylist returns the tracks of a playlist in playlist order. Songs
// no longer in the library are skipped.
func FromPlaylist(doc *state.Document, playlistID string) []Track {
	ids := doc.PlaylistSongs(playlistID)
	tracks := make([]Track, 0, len(ids))
	for _, id := range ids {
		tracks = append(tracks, FromSong(id, doc.Songs[id]))
	}
	return tracks
}

// FromPath creates a track for a file outside the library.
func FromPath(path string) Track {
	return Track{Path: path, Title: titleFromPath(path)}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
