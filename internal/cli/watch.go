package cli

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/library"
	"github.com/llehouerou/tunes/internal/tags"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		query  string
		sortBy string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the library in sync with the music folder",
		Long: `Watch the music folder and the user data. New and deleted files are
synced into the library, and the library summary is printed whenever the
displayed list changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := library.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			dir := a.cfg.MusicFolder
			out := cmd.OutOrStdout()

			r := library.New(a.store, tags.NewReader(), library.Options{
				MinRebuildInterval: a.cfg.RebuildInterval(),
				Query:              query,
				Sort:               key,
				Logger:             a.log,
			})
			defer r.Close()

			syncFolder := func() {
				stats, err := library.Sync(a.store, dir)
				if err != nil {
					a.log.WithError(errmsg.Wrap(errmsg.OpLibraryScan, err)).Warn("Sync failed")
					return
				}
				if len(stats.Added) > 0 || len(stats.Removed) > 0 {
					a.log.WithFields(logrus.Fields{
						"added":   len(stats.Added),
						"removed": len(stats.Removed),
					}).Info("Library synced")
				}
				if _, err := r.Refresh(library.TriggerPoll); err != nil {
					a.log.WithError(err).Warn("Library refresh failed")
				}
			}

			syncFolder()
			if _, err := r.Refresh(library.TriggerUser); err != nil {
				return fail(errmsg.OpLibraryRebuild, err)
			}

			w, err := library.NewWatcher(dir, syncFolder, library.WatcherOptions{
				Debounce: a.cfg.WatchDebounce(),
				Logger:   a.log,
			})
			if err != nil {
				return failWith(errmsg.OpLibraryWatch, dir, err)
			}
			defer func() { _ = w.Close() }()

			// Other processes may merge into the user data too.
			ticker := time.NewTicker(a.cfg.RebuildInterval())
			defer ticker.Stop()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := r.Refresh(library.TriggerPoll); err != nil {
						a.log.WithError(err).Warn("Library refresh failed")
					}
				case view := <-r.Views():
					fmt.Fprintf(out, "%s  %s\n", time.Now().Format(time.TimeOnly), library.Summary(view))
				}
			}
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by title, artist or album")
	cmd.Flags().StringVarP(&sortBy, "sort", "s", string(library.SortTitle), "sort key: title, artist, album, length")
	return cmd
}
