package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/tunes/internal/player"
	"github.com/llehouerou/tunes/internal/state"
)

type fakeLengths map[string]time.Duration

func (f fakeLengths) Length(path string) (time.Duration, error) {
	d, ok := f[path]
	if !ok {
		return 0, errors.New("no length")
	}
	return d, nil
}

// writeTrack creates a file the engine can stat. Its content is never
// decoded by the mock transport.
func writeTrack(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o600))
	return path
}

func newEngine(t *testing.T, tr *player.Mock, opts Options) *Engine {
	t.Helper()
	e, err := New(tr, opts)
	require.NoError(t, err)
	return e
}

func closeEngine(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Close(context.Background()))
}

// drainStates returns the queued state changes.
func drainStates(sub *Subscription) []StateChange {
	var out []StateChange
	for {
		select {
		case c := <-sub.StateChanged:
			out = append(out, c)
		default:
			return out
		}
	}
}

func drainPositions(sub *Subscription) []PositionChange {
	var out []PositionChange
	for {
		select {
		case p := <-sub.PositionChanged:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestNew_InitError(t *testing.T) {
	tr := player.NewMock()
	tr.SetInitError(errors.New("no device"))

	_, err := New(tr, Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no device")
}

func TestSettingsOptions(t *testing.T) {
	s := state.DefaultSettings()
	s.Volume = 40
	s.Muted = true
	s.Loop = true

	opts := SettingsOptions(s)

	assert.InDelta(t, 0.4, opts.Volume, 1e-9)
	assert.True(t, opts.Muted)
	assert.True(t, opts.Loop)
	assert.False(t, opts.Shuffle)
}

func TestEngine_StateMachine(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Volume: 1})
		sub := e.Subscribe()
		path := writeTrack(t, "a.mp3")

		assert.Equal(t, StateIdle, e.State())

		require.NoError(t, e.Load(path))
		assert.Equal(t, StateLoaded, e.State())
		assert.Nil(t, e.Session(), "no session before Play")

		require.NoError(t, e.Play())
		assert.Equal(t, StatePlaying, e.State())
		require.NotNil(t, e.Session())
		assert.Equal(t, path, e.Session().Path)

		e.Pause()
		assert.Equal(t, StatePaused, e.State())
		assert.True(t, e.Session().Paused)

		e.Unpause()
		assert.Equal(t, StatePlaying, e.State())

		e.Stop()
		assert.Equal(t, StateStopped, e.State())
		assert.Nil(t, e.Session())
		assert.Zero(t, e.Position())

		require.NoError(t, e.Play(), "a stopped track can be replayed")
		assert.Equal(t, StatePlaying, e.State())

		closeEngine(t, e)
		assert.Equal(t, StateIdle, e.State())

		want := []StateChange{
			{StateIdle, StateLoaded},
			{StateLoaded, StatePlaying},
			{StatePlaying, StatePaused},
			{StatePaused, StatePlaying},
			{StatePlaying, StateStopped},
			{StateStopped, StatePlaying},
			{StatePlaying, StateIdle},
		}
		assert.Equal(t, want, drainStates(sub))
		<-sub.Done
	})
}

func TestEngine_NoOpTransitions(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		require.NoError(t, e.Play(), "Play without a track is a no-op")
		e.Pause()
		e.Unpause()
		e.Stop()
		require.NoError(t, e.Seek(time.Second))

		assert.Equal(t, StateIdle, e.State())
		assert.Empty(t, tr.PlayCalls())
	})
}

func TestEngine_PlayPathMissingFile(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		playing := writeTrack(t, "a.mp3")
		require.NoError(t, e.PlayPath(playing))

		err := e.PlayPath("/nonexistent/b.mp3")

		var notFound *FileNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "/nonexistent/b.mp3", notFound.Path)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, StatePlaying, e.State(), "state unchanged")
		assert.Equal(t, []string{playing}, tr.LoadCalls(), "transport untouched")
	})
}

func TestEngine_LoadRefusedWhileActive(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		playing := writeTrack(t, "a.mp3")
		other := writeTrack(t, "b.mp3")
		require.NoError(t, e.PlayPath(playing))

		require.ErrorIs(t, e.Load(other), ErrTrackActive)
		assert.Equal(t, StatePlaying, e.State())

		e.Pause()
		require.ErrorIs(t, e.Load(other), ErrTrackActive)
		assert.Equal(t, StatePaused, e.State())
		loaded, _ := e.Loaded()
		assert.Equal(t, playing, loaded)
		assert.Equal(t, []string{playing}, tr.LoadCalls(), "transport untouched")

		e.Stop()
		require.NoError(t, e.Load(other))
		assert.Equal(t, StateLoaded, e.State())
	})
}

func TestEngine_PlayPathWhileActiveStopsFirst(t *testing.T) {
	tests := []struct {
		name   string
		pause  bool
		before State
	}{
		{name: "playing", before: StatePlaying},
		{name: "paused", pause: true, before: StatePaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				tr := player.NewMock()
				e := newEngine(t, tr, Options{})
				defer closeEngine(t, e)

				first := writeTrack(t, "a.mp3")
				second := writeTrack(t, "b.mp3")
				require.NoError(t, e.PlayPath(first))
				if tt.pause {
					e.Pause()
				}
				sub := e.Subscribe()

				require.NoError(t, e.PlayPath(second))

				assert.Equal(t, StatePlaying, e.State())
				require.NotNil(t, e.Session())
				assert.Equal(t, second, e.Session().Path)
				want := []StateChange{
					{tt.before, StateStopped},
					{StateStopped, StateLoaded},
					{StateLoaded, StatePlaying},
				}
				assert.Equal(t, want, drainStates(sub))
			})
		})
	}
}

func TestEngine_LoadUnplayableFile(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		boom := errors.New("bad header")
		tr.SetLoadError(boom)
		path := writeTrack(t, "broken.mp3")

		err := e.PlayPath(path)

		var unplayable *UnplayableFileError
		require.ErrorAs(t, err, &unplayable)
		assert.Equal(t, path, unplayable.Path)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, StateIdle, e.State())
		loaded, _ := e.Loaded()
		assert.Empty(t, loaded)
	})
}

func TestEngine_PlayError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		require.NoError(t, e.Load(writeTrack(t, "a.mp3")))
		tr.SetPlayError(errors.New("device busy"))

		var unplayable *UnplayableFileError
		require.ErrorAs(t, e.Play(), &unplayable)
		assert.Equal(t, StateLoaded, e.State())
	})
}

func TestEngine_LengthFromReaderThenTransport(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		known := writeTrack(t, "known.mp3")
		unknown := writeTrack(t, "unknown.mp3")

		tr := player.NewMock()
		tr.SetDuration(90 * time.Second)
		e := newEngine(t, tr, Options{Lengths: fakeLengths{known: 3 * time.Minute}})
		defer closeEngine(t, e)

		require.NoError(t, e.Load(known))
		_, length := e.Loaded()
		assert.Equal(t, 3*time.Minute, length)

		require.NoError(t, e.Load(unknown))
		_, length = e.Loaded()
		assert.Equal(t, 90*time.Second, length, "falls back to the transport")
	})
}

func TestEngine_PositionNonDecreasingWhilePlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		require.NoError(t, e.PlayPath(writeTrack(t, "a.mp3")))

		var last time.Duration
		steps := []int64{0, 120, 90, 400, -1, 380, 1000}
		for _, raw := range steps {
			tr.SetRawPosition(raw)
			pos := e.Position()
			assert.GreaterOrEqual(t, pos, last, "raw %d", raw)
			last = pos
		}
		assert.Equal(t, time.Second, last)
	})
}

func TestEngine_PositionClampedToLength(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		path := writeTrack(t, "a.mp3")
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Lengths: fakeLengths{path: 2 * time.Second}})
		defer closeEngine(t, e)

		require.NoError(t, e.PlayPath(path))
		tr.SetRawPosition(-50)
		assert.Zero(t, e.Position(), "negative transport readings count as zero")

		tr.SetRawPosition(5000)
		assert.Equal(t, 2*time.Second, e.Position())
	})
}

func TestEngine_PositionConstantWhilePaused(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)
		sub := e.Subscribe()

		require.NoError(t, e.PlayPath(writeTrack(t, "a.mp3")))
		tr.Advance(1500 * time.Millisecond)
		e.Pause()
		paused := e.Position()
		assert.Equal(t, 1500*time.Millisecond, paused)

		drainPositions(sub)
		for range 5 {
			tr.Advance(time.Second)
			time.Sleep(DefaultPollInterval)
			synctest.Wait()
			assert.Equal(t, paused, e.Position())
		}
		assert.Empty(t, drainPositions(sub), "no position events while paused")

		e.Unpause()
		tr.Advance(500 * time.Millisecond)
		assert.Equal(t, 2*time.Second, e.Position(), "resumes from the frozen position")
	})
}

func TestEngine_Seek(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		path := writeTrack(t, "a.mp3")
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Lengths: fakeLengths{path: time.Minute}})
		defer closeEngine(t, e)
		sub := e.Subscribe()

		require.NoError(t, e.PlayPath(path))
		tr.Advance(10 * time.Second)

		require.NoError(t, e.Seek(30*time.Second))
		assert.Equal(t, 30*time.Second, e.Position())
		assert.Equal(t, 30*time.Second, e.Session().StartOffset)
		assert.Equal(t, StatePlaying, e.State())

		tr.Advance(2 * time.Second)
		assert.Equal(t, 32*time.Second, e.Position())

		require.NoError(t, e.Seek(5*time.Second), "seeking backwards")
		assert.Equal(t, 5*time.Second, e.Position())

		require.NoError(t, e.Seek(2*time.Hour))
		assert.Equal(t, time.Minute, e.Position(), "clamped to the length")

		require.NoError(t, e.Seek(-time.Second))
		assert.Zero(t, e.Position())

		positions := drainPositions(sub)
		require.NotEmpty(t, positions)
		assert.Equal(t, PositionChange{Position: 0, Length: time.Minute}, positions[len(positions)-1])
	})
}

func TestEngine_SeekWhilePaused(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)

		require.NoError(t, e.PlayPath(writeTrack(t, "a.mp3")))
		e.Pause()

		require.NoError(t, e.Seek(42*time.Second))

		assert.Equal(t, StatePaused, e.State())
		assert.Equal(t, player.Paused, tr.State())
		assert.Equal(t, 42*time.Second, e.Position())
		tr.Advance(time.Second)
		assert.Equal(t, 42*time.Second, e.Position())

		e.Unpause()
		tr.Advance(time.Second)
		assert.Equal(t, 43*time.Second, e.Position())
	})
}

func TestEngine_PollerPublishesPositions(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)
		sub := e.Subscribe()

		require.NoError(t, e.PlayPath(writeTrack(t, "a.mp3")))

		for i := 1; i <= 3; i++ {
			tr.Advance(DefaultPollInterval)
			time.Sleep(DefaultPollInterval)
			synctest.Wait()
		}

		positions := drainPositions(sub)
		require.Len(t, positions, 3)
		for i, p := range positions {
			assert.Equal(t, time.Duration(i+1)*DefaultPollInterval, p.Position)
		}
	})
}

func TestEngine_SlowSubscriberDoesNotBlock(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		defer closeEngine(t, e)
		_ = e.Subscribe() // never read

		require.NoError(t, e.PlayPath(writeTrack(t, "a.mp3")))
		for range eventBufferSize * 3 {
			time.Sleep(DefaultPollInterval)
		}
		synctest.Wait()

		e.Pause()
		assert.Equal(t, StatePaused, e.State())
	})
}

func TestEngine_TrackFinishedStops(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		path := writeTrack(t, "a.mp3")
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Lengths: fakeLengths{path: time.Second}})
		defer closeEngine(t, e)
		sub := e.Subscribe()

		require.NoError(t, e.PlayPath(path))
		tr.Advance(2 * time.Second)
		time.Sleep(DefaultPollInterval)
		synctest.Wait()

		finished := <-sub.Finished
		assert.Equal(t, TrackFinished{Path: path, Looped: false}, finished)
		assert.Equal(t, StateStopped, e.State())
		assert.Zero(t, e.Position())
	})
}

func TestEngine_TrackFinishedLoops(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		path := writeTrack(t, "a.mp3")
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Loop: true, Lengths: fakeLengths{path: time.Second}})
		defer closeEngine(t, e)
		sub := e.Subscribe()

		require.NoError(t, e.PlayPath(path))
		tr.Advance(time.Second)
		time.Sleep(DefaultPollInterval)
		synctest.Wait()

		finished := <-sub.Finished
		assert.True(t, finished.Looped)
		assert.Equal(t, StatePlaying, e.State())
		assert.Zero(t, e.Position(), "restarted from the beginning")
		assert.Equal(t, []time.Duration{0, 0}, tr.PlayCalls())
	})
}

func TestEngine_Volume(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Volume: 0.6})
		defer closeEngine(t, e)

		assert.InDelta(t, 0.6, tr.Level(), 1e-9, "startup volume applied")

		e.SetVolume(1.5)
		assert.InDelta(t, 1.0, e.Volume(), 1e-9)
		assert.InDelta(t, 1.0, tr.Level(), 1e-9)

		e.SetVolume(-3)
		assert.InDelta(t, 0.0, tr.Level(), 1e-9)

		e.SetVolume(0.3)
		e.SetMuted(true)
		assert.InDelta(t, 0.0, tr.Level(), 1e-9)
		assert.InDelta(t, 0.3, e.Volume(), 1e-9, "level kept while muted")

		e.SetVolume(0.8)
		assert.InDelta(t, 0.0, tr.Level(), 1e-9, "still muted")

		e.SetMuted(false)
		assert.InDelta(t, 0.8, tr.Level(), 1e-9)
	})
}

func TestEngine_StartMuted(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{Volume: 0.5, Muted: true})
		defer closeEngine(t, e)

		assert.InDelta(t, 0.0, tr.Level(), 1e-9)
		assert.True(t, e.Muted())
	})
}

func TestEngine_Close(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tr := player.NewMock()
		e := newEngine(t, tr, Options{})
		sub := e.Subscribe()
		require.NoError(t, e.PlayPath(writeTrack(t, "a.mp3")))

		require.NoError(t, e.Close(context.Background()))
		require.NoError(t, e.Close(context.Background()), "second Close is a no-op")

		assert.Equal(t, 1, tr.Teardowns())
		<-sub.Done

		require.ErrorIs(t, e.Play(), ErrClosed)
		require.ErrorIs(t, e.Load("/x.mp3"), ErrClosed)
		require.ErrorIs(t, e.Seek(0), ErrClosed)

		late := e.Subscribe()
		<-late.Done
	})
}
