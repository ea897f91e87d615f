package playback

import (
	"context"
	"time"
)

// Service defines the playback engine contract used by callers.
type Service interface {
	// Transport control
	Load(path string) error
	Play() error
	PlayPath(path string) error
	Pause()
	Unpause()
	Stop()
	Seek(offset time.Duration) error

	// Output and modes
	SetVolume(level float64)
	SetMuted(muted bool)
	SetLoop(loop bool)
	SetShuffle(shuffle bool)

	// State queries
	State() State
	Position() time.Duration
	Session() *Session
	Loaded() (string, time.Duration)

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close(ctx context.Context) error
}

// Verify Engine implements Service at compile time.
var _ Service = (*Engine)(nil)
