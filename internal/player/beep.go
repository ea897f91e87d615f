package player

import (
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

const defaultSampleRate beep.SampleRate = 44100

var errNoFile = errors.New("no file loaded")

// Beep is the Transport backed by the gopxl/beep speaker.
//
// Lock order is b.mu then the speaker lock. The speaker goroutine never takes
// b.mu.
type Beep struct {
	mu          sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	state    State
	start    int // streamer position at the last Play
	level    float64
}

// NewBeep returns a transport at full volume. Call Init before use.
func NewBeep() *Beep {
	return &Beep{
		sampleRate: defaultSampleRate,
		level:      1,
	}
}

// Init opens the output device. Tracks at other sample rates are resampled.
func (b *Beep) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	if err := speaker.Init(b.sampleRate, b.sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	b.initialized = true
	return nil
}

// LoadFile decodes path and replaces the loaded file. On error the previous
// file stays loaded.
func (b *Beep) LoadFile(path string) error {
	streamer, format, err := decodeFile(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	if b.streamer != nil {
		_ = b.streamer.Close()
	}
	b.streamer = streamer
	b.format = format
	b.start = 0
	return nil
}

// Play starts the loaded file at start. Offsets past the end are clamped.
func (b *Beep) Play(start time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return errNoFile
	}
	b.stopLocked()

	pos := max(b.format.SampleRate.N(start), 0)
	if n := b.streamer.Len(); n > 0 {
		pos = min(pos, n)
	}
	if err := b.streamer.Seek(pos); err != nil {
		return err
	}
	b.start = pos

	var s beep.Streamer = b.streamer
	if b.format.SampleRate != b.sampleRate {
		s = beep.Resample(4, b.format.SampleRate, b.sampleRate, s)
	}
	b.ctrl = &beep.Ctrl{Streamer: s}
	b.volume = &effects.Volume{
		Streamer: b.ctrl,
		Base:     2,
		Volume:   levelToVolume(b.level),
		Silent:   b.level <= 0,
	}
	speaker.Play(b.volume)
	b.state = Playing
	return nil
}

func (b *Beep) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.CanPause() || b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.state = Paused
}

func (b *Beep) Unpause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.CanResume() || b.ctrl == nil {
		return
	}
	speaker.Lock()
	b.ctrl.Paused = false
	speaker.Unlock()
	b.state = Playing
}

// Stop halts output. The file stays loaded so Play can restart it.
func (b *Beep) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Beep) stopLocked() {
	if b.state == Stopped {
		return
	}
	if b.initialized {
		speaker.Clear()
	}
	b.ctrl = nil
	b.volume = nil
	b.state = Stopped
}

// SetVolume sets the level (0.0 to 1.0), applying it to the running stream.
func (b *Beep) SetVolume(level float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level = clampLevel(level)
	if b.volume != nil {
		speaker.Lock()
		b.volume.Volume = levelToVolume(b.level)
		b.volume.Silent = b.level <= 0
		speaker.Unlock()
	}
}

func (b *Beep) PositionMillis() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Stopped || b.streamer == nil {
		return -1
	}
	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos - b.start).Milliseconds()
}

// Duration returns the decoded length of the loaded file.
func (b *Beep) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len())
}

// Teardown stops playback, closes the loaded file and the device.
func (b *Beep) Teardown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	var err error
	if b.streamer != nil {
		err = b.streamer.Close()
		b.streamer = nil
	}
	if b.initialized {
		speaker.Close()
		b.initialized = false
	}
	return err
}
