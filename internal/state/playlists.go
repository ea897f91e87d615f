package state

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AddPlaylist creates a playlist named name holding songIDs and returns its
// id. When iconPath is set the image is copied into the images directory as
// <id><ext>; if that copy fails the original path is stored instead.
// It returns ErrPlaylistExists when the name is taken.
func (s *Store) AddPlaylist(name string, songIDs []string, iconPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.orEmpty(s.load())
	if err != nil {
		return "", err
	}
	if _, exists := doc.PlaylistByName(name); exists {
		return "", ErrPlaylistExists
	}

	id := NextPlaylistID(doc.Playlists)
	entry := Playlist{Name: name, Songs: append([]string{}, songIDs...)}
	if iconPath != "" {
		icon, err := s.copyIcon(id, iconPath)
		if err != nil {
			s.log.WithError(err).WithField("icon", iconPath).
				Error("Failed to copy playlist icon, keeping original path")
			icon = iconPath
		}
		entry.Icon = icon
	}

	applyPatch(doc, Patch{Playlists: map[string]Playlist{id: entry}})
	if err := s.persist("add playlist", doc); err != nil {
		return "", err
	}
	return id, nil
}

// copyIcon copies src into the images directory and returns the absolute
// destination path.
func (s *Store) copyIcon(id, src string) (string, error) {
	if err := os.MkdirAll(s.imagesDir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(src))
	if ext == "" {
		ext = ".png"
	}
	dst := filepath.Join(s.imagesDir, id+ext)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(s.imagesDir, id+"_"+strings.ReplaceAll(uuid.NewString(), "-", "")+ext)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return filepath.Abs(dst)
}
