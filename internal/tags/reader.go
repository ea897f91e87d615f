package tags

import (
	"errors"
	"fmt"
	"time"
)

// Info is the subset of file metadata the library view and the playback
// engine consume.
type Info struct {
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
}

// Reader reads Info from files on disk. The zero value is ready to use.
type Reader struct{}

// NewReader returns a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read returns the tags and duration of path. A file that yields only one of
// the two is returned without error; the missing half is left zero. When
// neither can be read the error wraps ErrMetadataUnavailable.
func (r *Reader) Read(path string) (*Info, error) {
	t, tagErr := Read(path)
	audio, audioErr := ReadAudioInfo(path)
	if tagErr != nil && audioErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMetadataUnavailable, path, errors.Join(tagErr, audioErr))
	}

	info := &Info{}
	if tagErr == nil {
		info.Title = t.Title
		info.Artist = t.Artist
		info.Album = t.Album
	}
	if audioErr == nil {
		info.Duration = audio.Duration
	}
	return info, nil
}

// Length returns the duration of path.
func (r *Reader) Length(path string) (time.Duration, error) {
	audio, err := ReadAudioInfo(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMetadataUnavailable, path, err)
	}
	return audio.Duration, nil
}
