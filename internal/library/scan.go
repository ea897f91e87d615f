package library

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/llehouerou/tunes/internal/state"
	"github.com/llehouerou/tunes/internal/tags"
)

// ScanStats reports what a Sync changed.
type ScanStats struct {
	Found   int      // music files under the folder
	Added   []string // ids of the new songs
	Removed []string // ids of songs whose file is gone
}

// Scan walks dir and returns a song for every music file whose location is
// not in known. Songs are named after the file without its extension and
// ordered by path. Unreadable entries are skipped.
func Scan(dir string, known map[string]bool) ([]state.Song, error) {
	files, err := discoverFiles(dir)
	if err != nil {
		return nil, err
	}

	var songs []state.Song
	for _, path := range files {
		if known[path] {
			continue
		}
		songs = append(songs, state.Song{Name: songName(path), Loc: path})
	}
	return songs, nil
}

// discoverFiles returns the absolute paths of the music files under dir,
// sorted.
func discoverFiles(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		// Skip any walk errors - intentionally continuing to scan other paths
		if walkErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() {
			if path != root && isHidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(path) || !tags.IsMusicFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	slices.Sort(files)
	return files, nil
}

func songName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Sync adds the new music files under dir to the store and removes the songs
// located under dir whose file no longer exists. Songs outside dir are never
// touched. Removals and additions are written in one merge, so a failed
// write changes nothing.
func Sync(store state.Interface, dir string) (ScanStats, error) {
	doc, err := store.LoadOrEmpty()
	if err != nil {
		return ScanStats{}, fmt.Errorf("load songs: %w", err)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return ScanStats{}, err
	}
	files, err := discoverFiles(root)
	if err != nil {
		return ScanStats{}, err
	}
	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		onDisk[f] = true
	}

	known := make(map[string]bool, len(doc.Songs))
	var removed []string
	for id, s := range doc.Songs {
		known[s.Loc] = true
		if underDir(root, s.Loc) && !onDisk[s.Loc] {
			if _, err := os.Stat(s.Loc); os.IsNotExist(err) {
				removed = append(removed, id)
			}
		}
	}
	slices.Sort(removed)

	var added []state.Song
	for _, path := range files {
		if !known[path] {
			added = append(added, state.Song{Name: songName(path), Loc: path})
		}
	}

	stats := ScanStats{Found: len(files), Removed: removed}
	if len(added) == 0 && len(removed) == 0 {
		return stats, nil
	}

	res, err := store.Apply(state.Patch{RemoveSongs: removed, NewSongs: added})
	if err != nil {
		return ScanStats{}, err
	}
	stats.Added = res.SongIDs
	return stats, nil
}

func underDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
