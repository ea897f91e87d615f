package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// mp3FrameBytes is the size of one decoded frame: stereo, 16-bit little endian.
const mp3FrameBytes = 4

// mp3Stream decodes MP3 with llehouerou/go-mp3, whose sample-accurate seek
// lets Play start mid-track without decoding from the top. It owns the file.
type mp3Stream struct {
	file *os.File
	dec  *mp3.Decoder
	pcm  []byte
	err  error
}

func openMP3(f *os.File) (*mp3Stream, beep.Format, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("mp3: %w", err)
	}
	rate := dec.SampleRate()
	if rate <= 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(rate),
		NumChannels: 2,
		Precision:   2,
	}
	return &mp3Stream{file: f, dec: dec}, format, nil
}

func (s *mp3Stream) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}

	want := len(samples) * mp3FrameBytes
	if cap(s.pcm) < want {
		s.pcm = make([]byte, want)
	}
	buf := s.pcm[:want]

	read, err := io.ReadFull(s.dec, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
		return 0, false
	}
	n := pcm16Stereo(samples, buf[:read])
	return n, n > 0
}

// pcm16Stereo converts interleaved frames from src into dst and returns the
// number of whole frames converted.
func pcm16Stereo(dst [][2]float64, src []byte) int {
	n := min(len(src)/mp3FrameBytes, len(dst))
	for i := range n {
		frame := src[i*mp3FrameBytes:]
		dst[i][0] = float64(int16(binary.LittleEndian.Uint16(frame))) / 32768    //nolint:gosec // audio samples
		dst[i][1] = float64(int16(binary.LittleEndian.Uint16(frame[2:]))) / 32768 //nolint:gosec // audio samples
	}
	return n
}

func (s *mp3Stream) Err() error {
	return s.err
}

func (s *mp3Stream) Len() int {
	return int(max(s.dec.SampleCount(), 0))
}

func (s *mp3Stream) Position() int {
	return int(s.dec.SamplePosition())
}

// Seek clamps p to the stream and clears a previous read error.
func (s *mp3Stream) Seek(p int) error {
	p = min(max(p, 0), s.Len())
	if err := s.dec.SeekToSample(int64(p)); err != nil {
		return err
	}
	s.err = nil
	return nil
}

func (s *mp3Stream) Close() error {
	return s.file.Close()
}
