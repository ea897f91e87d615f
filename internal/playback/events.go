package playback

import "time"

// StateChange is emitted on every engine state transition.
type StateChange struct {
	Previous State
	Current  State
}

// PositionChange is emitted by the poller while playing and once after each
// seek.
type PositionChange struct {
	Position time.Duration
	Length   time.Duration // 0 when unknown
}

// TrackFinished is emitted when the position reaches the track length.
// Looped reports whether the track restarted from the beginning.
type TrackFinished struct {
	Path   string
	Looped bool
}

// ErrorEvent is emitted when a background operation fails.
type ErrorEvent struct {
	Operation string // e.g., "loop"
	Path      string
	Err       error
}
