package player

import (
	"sync"
	"time"
)

// Mock is a test double for Transport. Its clock only moves when Advance is
// called, so positions are deterministic.
type Mock struct {
	mu sync.Mutex

	state    State
	loaded   string
	duration time.Duration
	level    float64

	clock     time.Duration // total time advanced
	playedAt  time.Duration // clock at the last Play or Unpause
	elapsed   time.Duration // played time accumulated before the last Unpause
	rawPos    *int64
	initErr   error
	loadErr   error
	playErr   error
	loadCalls []string
	playCalls []time.Duration
	teardowns int
	inits     int
}

// NewMock creates a new mock transport at full volume.
func NewMock() *Mock {
	return &Mock{state: Stopped, level: 1}
}

func (m *Mock) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

func (m *Mock) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, path)
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = path
	m.state = Stopped
	return nil
}

func (m *Mock) Play(start time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls = append(m.playCalls, start)
	if m.playErr != nil {
		return m.playErr
	}
	if m.loaded == "" {
		return errNoFile
	}
	m.state = Playing
	m.playedAt = m.clock
	m.elapsed = 0
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.CanPause() {
		return
	}
	m.elapsed += m.clock - m.playedAt
	m.state = Paused
}

func (m *Mock) Unpause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.CanResume() {
		return
	}
	m.playedAt = m.clock
	m.state = Playing
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.elapsed = 0
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = clampLevel(level)
}

func (m *Mock) PositionMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rawPos != nil {
		return *m.rawPos
	}
	switch m.state {
	case Playing:
		return (m.elapsed + m.clock - m.playedAt).Milliseconds()
	case Paused:
		return m.elapsed.Milliseconds()
	default:
		return -1
	}
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Teardown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.loaded = ""
	m.teardowns++
	return nil
}

// Test helpers

// Advance moves the mock clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.clock += d
	m.mu.Unlock()
}

// SetRawPosition forces PositionMillis to return ms regardless of the
// clock. ClearRawPosition restores clock-based positions.
func (m *Mock) SetRawPosition(ms int64) {
	m.mu.Lock()
	m.rawPos = &ms
	m.mu.Unlock()
}

func (m *Mock) ClearRawPosition() {
	m.mu.Lock()
	m.rawPos = nil
	m.mu.Unlock()
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	m.duration = d
	m.mu.Unlock()
}

func (m *Mock) SetInitError(err error) {
	m.mu.Lock()
	m.initErr = err
	m.mu.Unlock()
}

func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	m.playErr = err
	m.mu.Unlock()
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Mock) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) PlayCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.playCalls...)
}

func (m *Mock) Teardowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teardowns
}

func (m *Mock) Inits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits
}
