package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/tunes/internal/tags"
)

// decodeFile opens path and returns a seekable stream for it. Closing the
// stream closes the file.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !tags.IsMusicFile(path) {
		return nil, beep.Format{}, fmt.Errorf("unsupported format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	if ext == tags.ExtMP3 {
		s, format, err := openMP3(f)
		if err != nil {
			f.Close()
			return nil, beep.Format{}, err
		}
		return s, format, nil
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case tags.ExtFLAC:
		if err = tags.SkipID3v2(f); err == nil {
			streamer, format, err = flac.Decode(f)
		}
	case tags.ExtWAV:
		streamer, format, err = wav.Decode(f)
	case tags.ExtOGG, tags.ExtOGA:
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}

	// Unlike mp3Stream these decoders do not own the file.
	return &fileStreamer{StreamSeekCloser: streamer, file: f}, format, nil
}

// fileStreamer closes the backing file along with the decoder.
type fileStreamer struct {
	beep.StreamSeekCloser
	file *os.File
}

func (s *fileStreamer) Close() error {
	err := s.StreamSeekCloser.Close()
	_ = s.file.Close()
	return err
}
