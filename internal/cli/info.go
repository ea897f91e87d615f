package cli

import (
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/library"
	"github.com/llehouerou/tunes/internal/tags"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show where data lives and library totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpStateLoad, err)
			}

			size := "not created yet"
			modified := "-"
			if fi, err := os.Stat(a.store.Location()); err == nil {
				size = humanize.Bytes(uint64(fi.Size())) //nolint:gosec // file sizes are non-negative
				modified = humanize.Time(fi.ModTime())
			}

			r := library.New(a.store, tags.NewReader(), library.Options{Logger: a.log})
			view := r.ComputeView(doc.Songs, "", library.SortTitle)

			t := newTable(cmd.OutOrStdout())
			t.row("music folder", a.cfg.MusicFolder)
			t.row("user data", a.store.Location())
			t.row("backend", a.cfg.State.Backend)
			t.row("size", size)
			t.row("modified", modified)
			t.row("images", a.store.ImagesDir())
			t.row("songs", humanize.Comma(int64(len(doc.Songs))))
			t.row("playlists", strconv.Itoa(len(doc.Playlists)))
			t.row("library", library.Summary(view))
			t.flush()
			return nil
		},
	}
}
