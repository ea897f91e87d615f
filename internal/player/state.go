package player

// State is the transport-level playback state.
//
//	┌──────────┐   Play(start)   ┌──────────┐
//	│  Stopped │ ───────────────▶│  Playing │
//	└──────────┘                 └──────────┘
//	     ▲                         │      ▲
//	     │ Stop              Pause │      │ Unpause
//	     │                         ▼      │
//	     │                       ┌──────────┐
//	     └───────────────────────│  Paused  │
//	                  Stop       └──────────┘
//
// Play from any state restarts the loaded file at the given offset.
// Pause when not Playing and Unpause when not Paused are ignored.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// CanPause returns true if the state allows pausing.
func (s State) CanPause() bool {
	return s == Playing
}

// CanResume returns true if the state allows resuming.
func (s State) CanResume() bool {
	return s == Paused
}
