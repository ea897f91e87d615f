package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/playback"
	"github.com/llehouerou/tunes/internal/player"
	"github.com/llehouerou/tunes/internal/queue"
	"github.com/llehouerou/tunes/internal/state"
	"github.com/llehouerou/tunes/internal/tags"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		seek     time.Duration
		limit    time.Duration
		playlist string
	)

	cmd := &cobra.Command{
		Use:   "play [song-id|file...]",
		Short: "Play songs",
		Long: `Play library songs, audio files or a playlist until the queue ends or
the command is interrupted. Volume, mute, shuffle and loop come from the
settings. Loop repeats the current song.

Examples:
  tunes play song12
  tunes play song12 --seek 1m30s --for 20s
  tunes play --playlist Favs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && playlist == "" {
				return errors.New("nothing to play: give song ids, files or --playlist")
			}
			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpStateLoad, err)
			}
			tracks, err := collectTracks(doc, args, playlist)
			if err != nil {
				return fail(errmsg.OpPlaybackStart, err)
			}

			opts := playback.SettingsOptions(doc.Settings)
			opts.PollInterval = a.cfg.PollInterval()
			opts.ShutdownTimeout = a.cfg.ShutdownTimeout()
			opts.Lengths = tags.NewReader()
			opts.Logger = a.log

			engine, err := playback.New(player.NewBeep(), opts)
			if err != nil {
				return fail(errmsg.OpInitialize, err)
			}
			defer func() {
				if err := engine.Close(context.Background()); err != nil {
					a.log.WithError(err).Warn("Playback engine did not close cleanly")
				}
			}()

			ctx := cmd.Context()
			if limit > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limit)
				defer cancel()
			}

			q := queue.New(nil)
			q.SetShuffle(engine.Shuffle())
			q.Replace(tracks...)
			return playQueue(ctx, cmd.OutOrStdout(), engine, q, seek)
		},
	}

	cmd.Flags().DurationVar(&seek, "seek", 0, "start offset of the first song")
	cmd.Flags().DurationVar(&limit, "for", 0, "stop after this long (0 plays to the end)")
	cmd.Flags().StringVarP(&playlist, "playlist", "p", "", "play a playlist, by id or name")
	return cmd
}

// collectTracks resolves the playlist, then each argument, into tracks.
func collectTracks(doc *state.Document, refs []string, playlist string) ([]queue.Track, error) {
	var tracks []queue.Track
	if playlist != "" {
		id, err := resolvePlaylist(doc, playlist)
		if err != nil {
			return nil, err
		}
		tracks = queue.FromPlaylist(doc, id)
		if len(tracks) == 0 {
			return nil, fmt.Errorf("playlist %q has no songs", playlist)
		}
	}
	for _, ref := range refs {
		t, err := resolveSong(doc, ref)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// resolveSong returns the track of a song id, or of ref itself when it is
// an existing file.
func resolveSong(doc *state.Document, ref string) (queue.Track, error) {
	if s, ok := doc.Songs[ref]; ok {
		return queue.FromSong(ref, s), nil
	}
	if fi, err := os.Stat(ref); err == nil && !fi.IsDir() {
		return queue.FromPath(ref), nil
	}
	return queue.Track{}, fmt.Errorf("no song %q", ref)
}

// playQueue plays the queue from its current track. A track that fails to
// start is reported and skipped.
func playQueue(
	ctx context.Context,
	out io.Writer,
	engine playback.Service,
	q *queue.Queue,
	seek time.Duration,
) error {
	sub := engine.Subscribe()
	played := 0

	for t := q.Current(); t != nil; t = q.Next() {
		err := playTrack(ctx, out, engine, sub, *t, seek)
		seek = 0
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errEngineClosed) {
			return nil
		}
		if err != nil {
			if q.Len() == 1 {
				return err
			}
			fmt.Fprintln(out, err)
			continue
		}
		played++
	}
	if played == 0 && q.Len() > 1 {
		return fail(errmsg.OpPlaybackStart, errors.New("no song could be played"))
	}
	return nil
}

// errEngineClosed reports that the engine closed under a playing track.
var errEngineClosed = errors.New("playback engine closed")

func playTrack(
	ctx context.Context,
	out io.Writer,
	engine playback.Service,
	sub *playback.Subscription,
	t queue.Track,
	seek time.Duration,
) error {
	ref := t.ID
	if ref == "" {
		ref = t.Path
	}

	if err := engine.PlayPath(t.Path); err != nil {
		return failWith(errmsg.OpPlaybackStart, ref, err)
	}
	if seek > 0 {
		if err := engine.Seek(seek); err != nil {
			return failWith(errmsg.OpPlaybackSeek, ref, err)
		}
	}
	fmt.Fprintf(out, "Playing %s\n", t.Title)

	lastSecond := int64(-1)
	for {
		select {
		case <-ctx.Done():
			engine.Stop()
			fmt.Fprintln(out)
			return nil

		case p := <-sub.PositionChanged:
			if sec := int64(p.Position / time.Second); sec != lastSecond {
				lastSecond = sec
				fmt.Fprintf(out, "\r%s / %s", formatDuration(p.Position), formatDuration(p.Length))
			}

		case f := <-sub.Finished:
			if !f.Looped {
				fmt.Fprintln(out)
				return nil
			}

		case ev := <-sub.Error:
			return failWith(errmsg.OpPlaybackStart, ref, ev.Err)

		case <-sub.Done:
			return errEngineClosed
		}
	}
}
