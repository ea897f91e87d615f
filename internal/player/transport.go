// Package player drives the audio output device.
//
// A Transport plays one loaded file at a time. It knows nothing about
// playlists or sessions; the playback engine layers those on top and turns
// the transport's raw elapsed time into a play position.
package player

import "time"

// Transport is the audio backend contract the playback engine drives.
type Transport interface {
	// Init prepares the output device. It is called once before any other
	// method.
	Init() error
	// LoadFile opens and decodes path, replacing the loaded file. Playback
	// does not start.
	LoadFile(path string) error
	// Play starts the loaded file at start, restarting it if it already plays.
	Play(start time.Duration) error
	Pause()
	Unpause()
	Stop()
	// SetVolume sets the output level in [0, 1].
	SetVolume(level float64)
	// PositionMillis returns the milliseconds played since the last Play, or
	// -1 when nothing plays.
	PositionMillis() int64
	// Teardown releases the device and the loaded file.
	Teardown() error
}

// Durationer is implemented by transports that know the decoded length of
// the loaded file.
type Durationer interface {
	Duration() time.Duration
}

var (
	_ Transport  = (*Beep)(nil)
	_ Transport  = (*Mock)(nil)
	_ Durationer = (*Beep)(nil)
	_ Durationer = (*Mock)(nil)
)
