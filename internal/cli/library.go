package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/library"
	"github.com/llehouerou/tunes/internal/tags"
)

const titleWidth = 40

func newScanCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scan [folder]",
		Short: "Add the music files of a folder to the library",
		Long: `Walk a folder (default: the configured music folder) and add every
supported audio file that is not in the library yet. Songs under the folder
whose file was deleted are removed.

Examples:
  tunes scan
  tunes scan ~/Downloads/album --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.MusicFolder
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fail(errmsg.OpLibraryScan, errors.New("no music folder configured"))
			}
			out := cmd.OutOrStdout()

			if dryRun {
				doc, err := a.store.LoadOrEmpty()
				if err != nil {
					return fail(errmsg.OpLibraryLoad, err)
				}
				known := make(map[string]bool, len(doc.Songs))
				for _, s := range doc.Songs {
					known[s.Loc] = true
				}
				songs, err := library.Scan(dir, known)
				if err != nil {
					return failWith(errmsg.OpLibraryScan, dir, err)
				}
				for _, s := range songs {
					fmt.Fprintln(out, s.Loc)
				}
				fmt.Fprintf(out, "%d new songs\n", len(songs))
				return nil
			}

			stats, err := library.Sync(a.store, dir)
			if err != nil {
				return failWith(errmsg.OpLibraryScan, dir, err)
			}
			a.log.WithField("dir", dir).WithField("found", stats.Found).Info("Scanned music folder")
			fmt.Fprintf(out, "Added %d, removed %d (%d files in %s)\n",
				len(stats.Added), len(stats.Removed), stats.Found, dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list new files without adding them")
	return cmd
}

func newSongsCmd(a *app) *cobra.Command {
	var (
		query  string
		sortBy string
		idsOut bool
	)

	cmd := &cobra.Command{
		Use:   "songs",
		Short: "List the library",
		Long: `List the songs of the library, optionally filtered and sorted.

The query matches title, artist and album case-insensitively. Sort keys are
title, artist, album and length.

Examples:
  tunes songs
  tunes songs --query floyd --sort length`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := library.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpLibraryLoad, err)
			}

			r := library.New(a.store, tags.NewReader(), library.Options{Logger: a.log})
			view := r.ComputeView(doc.Songs, query, key)
			out := cmd.OutOrStdout()

			if idsOut {
				for _, id := range view.IDs() {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			t := newTable(out, "ID", "TITLE", "ARTIST", "ALBUM", "LENGTH")
			for _, row := range view.Rows {
				t.row(row.ID, truncate(row.Title, titleWidth), truncate(row.Artist, titleWidth),
					truncate(row.Album, titleWidth), formatDuration(row.Length))
			}
			t.flush()
			fmt.Fprintln(out, library.Summary(view))
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by title, artist or album")
	cmd.Flags().StringVarP(&sortBy, "sort", "s", string(library.SortTitle), "sort key: title, artist, album, length")
	cmd.Flags().BoolVar(&idsOut, "ids", false, "print only song ids")
	return cmd
}
