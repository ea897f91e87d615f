package playback

// State represents the engine state.
//
// Transitions:
//   - Idle, Loaded, Stopped → Loaded  (Load)
//   - Loaded, Stopped       → Playing (Play)
//   - Playing               → Paused  (Pause)
//   - Paused                → Playing (Unpause)
//   - any                   → Stopped (Stop)
//   - any                   → Idle    (Close)
//
// Load and Play from Playing or Paused replace the current playback.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoaded:
		return "Loaded"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is active (playing or paused).
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}
