package player

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_StateTransitions(t *testing.T) {
	t.Run("Stopped to Playing via Play", func(t *testing.T) {
		m := NewMock()
		require.NoError(t, m.LoadFile("/test.mp3"))
		assert.Equal(t, Stopped, m.State())

		require.NoError(t, m.Play(0))

		assert.Equal(t, Playing, m.State())
	})

	t.Run("Playing to Paused via Pause", func(t *testing.T) {
		m := NewMock()
		require.NoError(t, m.LoadFile("/test.mp3"))
		require.NoError(t, m.Play(0))

		m.Pause()

		assert.Equal(t, Paused, m.State())
	})

	t.Run("Paused to Playing via Unpause", func(t *testing.T) {
		m := NewMock()
		require.NoError(t, m.LoadFile("/test.mp3"))
		require.NoError(t, m.Play(0))
		m.Pause()

		m.Unpause()

		assert.Equal(t, Playing, m.State())
	})

	t.Run("Paused to Stopped via Stop", func(t *testing.T) {
		m := NewMock()
		require.NoError(t, m.LoadFile("/test.mp3"))
		require.NoError(t, m.Play(0))
		m.Pause()

		m.Stop()

		assert.Equal(t, Stopped, m.State())
	})
}

func TestMock_NoOpTransitions(t *testing.T) {
	m := NewMock()

	m.Stop()
	m.Pause()
	m.Unpause()
	assert.Equal(t, Stopped, m.State())

	require.NoError(t, m.LoadFile("/test.mp3"))
	require.NoError(t, m.Play(0))
	m.Unpause()
	assert.Equal(t, Playing, m.State())
}

func TestMock_PlayWithoutFile(t *testing.T) {
	m := NewMock()
	require.Error(t, m.Play(0))
	assert.Equal(t, Stopped, m.State())
}

func TestMock_Clock(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.LoadFile("/test.mp3"))
	assert.Equal(t, int64(-1), m.PositionMillis(), "nothing plays yet")

	require.NoError(t, m.Play(0))
	m.Advance(1500 * time.Millisecond)
	assert.Equal(t, int64(1500), m.PositionMillis())

	m.Pause()
	m.Advance(time.Second)
	assert.Equal(t, int64(1500), m.PositionMillis(), "clock does not count while paused")

	m.Unpause()
	m.Advance(500 * time.Millisecond)
	assert.Equal(t, int64(2000), m.PositionMillis())

	require.NoError(t, m.Play(10*time.Second))
	assert.Equal(t, int64(0), m.PositionMillis(), "position restarts on Play")

	m.SetRawPosition(-40)
	assert.Equal(t, int64(-40), m.PositionMillis())
	m.ClearRawPosition()
	assert.Equal(t, int64(0), m.PositionMillis())
}

func TestMock_Errors(t *testing.T) {
	m := NewMock()
	boom := errors.New("boom")

	m.SetLoadError(boom)
	require.ErrorIs(t, m.LoadFile("/a.mp3"), boom)
	assert.Empty(t, m.Loaded())
	assert.Equal(t, []string{"/a.mp3"}, m.LoadCalls())

	m.SetLoadError(nil)
	require.NoError(t, m.LoadFile("/a.mp3"))
	m.SetPlayError(boom)
	require.ErrorIs(t, m.Play(time.Second), boom)
	assert.Equal(t, []time.Duration{time.Second}, m.PlayCalls())
}

func TestMock_VolumeClamped(t *testing.T) {
	m := NewMock()

	m.SetVolume(1.7)
	assert.InDelta(t, 1.0, m.Level(), 1e-9)

	m.SetVolume(-2)
	assert.InDelta(t, 0.0, m.Level(), 1e-9)
}

func TestLevelToVolume(t *testing.T) {
	tests := []struct {
		level float64
		want  float64
	}{
		{-1, -10},
		{0, -10},
		{0.25, -2},
		{0.5, -1},
		{1, 0},
		{2, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, levelToVolume(tt.level), 1e-9, "level %v", tt.level)
	}
}
