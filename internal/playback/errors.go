package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("playback engine closed")
	// ErrShutdownTimeout is returned by Close when the poller did not stop
	// within the shutdown timeout. The transport is torn down regardless.
	ErrShutdownTimeout = errors.New("position poller did not stop in time")
	// ErrTrackActive is returned by Load while a track is playing or paused.
	ErrTrackActive = errors.New("a track is playing or paused")
)

// FileNotFoundError reports a Load of a path that does not exist.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// UnplayableFileError reports a file the transport rejected.
type UnplayableFileError struct {
	Path string
	Err  error
}

func (e *UnplayableFileError) Error() string {
	return fmt.Sprintf("cannot play %s: %v", e.Path, e.Err)
}

func (e *UnplayableFileError) Unwrap() error { return e.Err }
