// Package playback owns the transport state machine and turns the
// transport's raw elapsed time into a continuously published play position.
package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/tunes/internal/logging"
	"github.com/llehouerou/tunes/internal/player"
	"github.com/llehouerou/tunes/internal/state"
)

const (
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultShutdownTimeout = time.Second
)

// LengthReader returns the duration of an audio file.
type LengthReader interface {
	Length(path string) (time.Duration, error)
}

// Options configures New.
type Options struct {
	Volume  float64 // 0.0-1.0
	Muted   bool
	Shuffle bool
	Loop    bool // restart a finished track instead of stopping

	PollInterval    time.Duration // zero means DefaultPollInterval
	ShutdownTimeout time.Duration // zero means DefaultShutdownTimeout

	// Lengths is optional. Without it, or when it fails, the engine asks the
	// transport if it implements player.Durationer.
	Lengths LengthReader
	Logger  logrus.FieldLogger
}

// SettingsOptions returns the startup options stored in the user settings.
func SettingsOptions(s state.Settings) Options {
	return Options{
		Volume:  s.VolumeLevel(),
		Muted:   s.Muted,
		Shuffle: s.Shuffle,
		Loop:    s.Loop,
	}
}

// Engine drives a player.Transport. All methods are safe for concurrent use.
//
// mu guards the transport and the session. The poller samples under mu and
// publishes after releasing it, so a slow subscriber never stalls a caller.
type Engine struct {
	mu        sync.Mutex
	transport player.Transport
	lengths   LengthReader
	log       logrus.FieldLogger

	state    State
	loaded   string
	length   time.Duration
	session  *Session
	lastPos  time.Duration
	finished bool // TrackFinished sent for the current run

	volume  float64
	muted   bool
	shuffle bool
	loop    bool
	closed  bool

	subsMu sync.Mutex
	subs   []*Subscription

	pollInterval    time.Duration
	shutdownTimeout time.Duration
	cancel          context.CancelFunc
	done            chan struct{}
}

// New initializes the transport, applies the startup volume and starts the
// position poller.
func New(t player.Transport, opts Options) (*Engine, error) {
	if err := t.Init(); err != nil {
		return nil, fmt.Errorf("init transport: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	e := &Engine{
		transport:       t,
		lengths:         opts.Lengths,
		log:             log.WithField("component", "playback"),
		state:           StateIdle,
		volume:          clampVolume(opts.Volume),
		muted:           opts.Muted,
		shuffle:         opts.Shuffle,
		loop:            opts.Loop,
		pollInterval:    opts.PollInterval,
		shutdownTimeout: opts.ShutdownTimeout,
		done:            make(chan struct{}),
	}
	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	if e.shutdownTimeout <= 0 {
		e.shutdownTimeout = DefaultShutdownTimeout
	}
	e.applyVolumeLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.poll(ctx)

	return e, nil
}

// Load opens path on the transport without starting it. It is refused with
// ErrTrackActive while a track plays or is paused; Stop first or use
// PlayPath. On failure the engine keeps its previous state and track.
func (e *Engine) Load(path string) error {
	e.mu.Lock()
	var (
		change *StateChange
		err    error
	)
	if e.state.IsActive() {
		err = ErrTrackActive
	} else {
		change, err = e.loadLocked(path)
	}
	e.mu.Unlock()

	e.publishState(change)
	return err
}

func (e *Engine) loadLocked(path string) (*StateChange, error) {
	if err := e.openLocked(path); err != nil {
		return nil, err
	}
	return e.loadedLocked(path), nil
}

// openLocked hands path to the transport. A transport that fails to open
// the file keeps playing the previous one.
func (e *Engine) openLocked(path string) error {
	if e.closed {
		return ErrClosed
	}
	if _, err := os.Stat(path); err != nil {
		return &FileNotFoundError{Path: path, Err: err}
	}
	if err := e.transport.LoadFile(path); err != nil {
		return &UnplayableFileError{Path: path, Err: err}
	}
	return nil
}

func (e *Engine) loadedLocked(path string) *StateChange {
	e.loaded = path
	e.length = e.readLength(path)
	e.session = nil
	e.lastPos = 0
	e.finished = false

	e.log.WithFields(logrus.Fields{
		"path":   path,
		"length": e.length,
	}).Debug("Loaded track")
	return e.setStateLocked(StateLoaded)
}

// readLength is best-effort: an unknown length disables the upper clamp and
// finish detection.
func (e *Engine) readLength(path string) time.Duration {
	if e.lengths != nil {
		d, err := e.lengths.Length(path)
		if err == nil && d > 0 {
			return d
		}
		if err != nil {
			e.log.WithError(err).WithField("path", path).Debug("Could not read track length")
		}
	}
	if d, ok := e.transport.(player.Durationer); ok {
		return d.Duration()
	}
	return 0
}

// Play starts the loaded track from the beginning. Without a loaded track
// it does nothing.
func (e *Engine) Play() error {
	e.mu.Lock()
	change, err := e.playLocked()
	e.mu.Unlock()

	e.publishState(change)
	return err
}

func (e *Engine) playLocked() (*StateChange, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.loaded == "" {
		return nil, nil
	}
	if err := e.transport.Play(0); err != nil {
		return nil, &UnplayableFileError{Path: e.loaded, Err: err}
	}

	e.session = &Session{
		Path:    e.loaded,
		Playing: true,
		Length:  e.length,
	}
	e.lastPos = 0
	e.finished = false
	return e.setStateLocked(StatePlaying), nil
}

// PlayPath stops the current track, loads path and plays it, publishing
// each transition. If path cannot be opened the current playback continues
// untouched.
func (e *Engine) PlayPath(path string) error {
	e.mu.Lock()
	var changes []*StateChange
	err := e.openLocked(path)
	if err == nil {
		if e.state.IsActive() {
			e.stopLocked()
			changes = append(changes, e.setStateLocked(StateStopped))
		}
		changes = append(changes, e.loadedLocked(path))

		var play *StateChange
		play, err = e.playLocked()
		changes = append(changes, play)
	}
	e.mu.Unlock()

	for _, c := range changes {
		e.publishState(c)
	}
	return err
}

// Pause freezes the position. It does nothing unless playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	var change *StateChange
	if !e.closed && e.state == StatePlaying {
		pos := e.positionLocked()
		e.transport.Pause()
		e.session.frozen = pos
		e.session.Paused = true
		e.session.Playing = false
		change = e.setStateLocked(StatePaused)
	}
	e.mu.Unlock()

	e.publishState(change)
}

// Unpause resumes from the frozen position. It does nothing unless paused.
func (e *Engine) Unpause() {
	e.mu.Lock()
	var change *StateChange
	if !e.closed && e.state == StatePaused {
		e.transport.Unpause()
		e.session.Paused = false
		e.session.Playing = true
		change = e.setStateLocked(StatePlaying)
	}
	e.mu.Unlock()

	e.publishState(change)
}

// Stop halts playback and resets the position. The track stays loaded.
func (e *Engine) Stop() {
	e.mu.Lock()
	var change *StateChange
	if !e.closed && e.state != StateIdle && e.state != StateStopped {
		e.stopLocked()
		change = e.setStateLocked(StateStopped)
	}
	e.mu.Unlock()

	e.publishState(change)
}

func (e *Engine) stopLocked() {
	e.transport.Stop()
	e.session = nil
	e.lastPos = 0
	e.finished = false
}

// Seek moves playback to offset, clamped to the track. It only applies while
// playing or paused; a paused engine stays paused at the new offset.
func (e *Engine) Seek(offset time.Duration) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if !e.state.IsActive() {
		e.mu.Unlock()
		return nil
	}

	offset = max(offset, 0)
	if e.session.Length > 0 {
		offset = min(offset, e.session.Length)
	}

	e.transport.Stop()
	if err := e.transport.Play(offset); err != nil {
		path := e.session.Path
		e.stopLocked()
		change := e.setStateLocked(StateStopped)
		e.mu.Unlock()
		e.publishState(change)
		return &UnplayableFileError{Path: path, Err: err}
	}
	if e.session.Paused {
		e.transport.Pause()
		e.session.frozen = offset
	}
	e.session.StartOffset = offset
	e.lastPos = offset
	e.finished = false
	ev := PositionChange{Position: offset, Length: e.session.Length}
	e.mu.Unlock()

	e.publishPosition(ev)
	return nil
}

// SetVolume sets the level, clamped to [0, 1]. While muted the level is
// stored and applied on unmute.
func (e *Engine) SetVolume(level float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.volume = clampVolume(level)
	e.applyVolumeLocked()
}

// SetMuted silences output without losing the volume level.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.muted = muted
	e.applyVolumeLocked()
}

func (e *Engine) applyVolumeLocked() {
	if e.muted {
		e.transport.SetVolume(0)
		return
	}
	e.transport.SetVolume(e.volume)
}

// SetLoop sets whether a finished track restarts.
func (e *Engine) SetLoop(loop bool) {
	e.mu.Lock()
	e.loop = loop
	e.mu.Unlock()
}

// SetShuffle records the shuffle preference. The engine plays one track at a
// time, so callers picking the next track read it back with Shuffle.
func (e *Engine) SetShuffle(shuffle bool) {
	e.mu.Lock()
	e.shuffle = shuffle
	e.mu.Unlock()
}

// Position returns the current play position. It never decreases while
// playing and is constant while paused.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Engine) positionLocked() time.Duration {
	if e.session == nil {
		return 0
	}
	if e.session.Paused {
		return e.session.frozen
	}
	pos := max(e.session.position(e.transport.PositionMillis()), e.lastPos)
	e.lastPos = pos
	return pos
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a copy of the current session, or nil when stopped.
func (e *Engine) Session() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	s := *e.session
	return &s
}

// Loaded returns the loaded path and its length.
func (e *Engine) Loaded() (string, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded, e.length
}

func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Engine) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *Engine) Loop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop
}

func (e *Engine) Shuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffle
}

func (e *Engine) setStateLocked(s State) *StateChange {
	if e.state == s {
		return nil
	}
	change := &StateChange{Previous: e.state, Current: s}
	e.state = s
	return change
}

// Subscribe creates a new event subscription. Its Done channel closes when
// the engine closes.
func (e *Engine) Subscribe() *Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	sub := newSubscription()
	if e.isClosed() {
		sub.close()
		return sub
	}
	e.subs = append(e.subs, sub)
	return sub
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) subscribers() []*Subscription {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	return append([]*Subscription(nil), e.subs...)
}

func (e *Engine) publishState(change *StateChange) {
	if change == nil {
		return
	}
	for _, sub := range e.subscribers() {
		sub.sendState(*change)
	}
}

func (e *Engine) publishPosition(ev PositionChange) {
	for _, sub := range e.subscribers() {
		sub.sendPosition(ev)
	}
}

// poll samples the position every pollInterval until ctx is cancelled.
func (e *Engine) poll(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick publishes the position and handles the end of the track.
func (e *Engine) tick() {
	e.mu.Lock()
	if e.closed || e.state != StatePlaying {
		e.mu.Unlock()
		return
	}

	pos := e.positionLocked()
	length := e.session.Length
	var (
		finished *TrackFinished
		change   *StateChange
		failure  *ErrorEvent
	)
	if length > 0 && pos >= length && !e.finished {
		e.finished = true
		path := e.session.Path
		finished = &TrackFinished{Path: path, Looped: e.loop}
		if e.loop {
			if err := e.transport.Play(0); err != nil {
				e.log.WithError(err).WithField("path", path).Error("Failed to restart looped track")
				failure = &ErrorEvent{Operation: "loop", Path: path, Err: err}
				finished.Looped = false
				e.stopLocked()
				change = e.setStateLocked(StateStopped)
			} else {
				e.session.StartOffset = 0
				e.lastPos = 0
				e.finished = false
			}
		} else {
			e.stopLocked()
			change = e.setStateLocked(StateStopped)
		}
	}
	e.mu.Unlock()

	subs := e.subscribers()
	for _, sub := range subs {
		sub.sendPosition(PositionChange{Position: pos, Length: length})
		if finished != nil {
			sub.sendFinished(*finished)
		}
		if failure != nil {
			sub.sendError(*failure)
		}
	}
	e.publishState(change)
}

// Close stops the poller, waiting at most the shutdown timeout or until ctx
// is done, then tears the transport down and closes every subscription.
// Later calls return nil.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()

	var joinErr error
	timer := time.NewTimer(e.shutdownTimeout)
	defer timer.Stop()
	select {
	case <-e.done:
	case <-timer.C:
		joinErr = ErrShutdownTimeout
		e.log.WithField("timeout", e.shutdownTimeout).Warn("Position poller did not stop in time")
	case <-ctx.Done():
		joinErr = ctx.Err()
	}

	e.mu.Lock()
	e.session = nil
	e.loaded = ""
	e.length = 0
	change := e.setStateLocked(StateIdle)
	teardownErr := e.transport.Teardown()
	e.mu.Unlock()

	e.publishState(change)

	e.subsMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subsMu.Unlock()

	if teardownErr != nil {
		teardownErr = fmt.Errorf("teardown transport: %w", teardownErr)
	}
	return errors.Join(joinErr, teardownErr)
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}
