package cli

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/state"
)

func newPlaylistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"playlists", "pl"},
		Short:   "Manage playlists",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listPlaylists(a, cmd)
		},
	}

	cmd.AddCommand(
		newPlaylistAddCmd(a),
		newPlaylistListCmd(a),
		newPlaylistShowCmd(a),
		newPlaylistRenameCmd(a),
		newPlaylistRemoveCmd(a),
	)
	return cmd
}

func newPlaylistAddCmd(a *app) *cobra.Command {
	var icon string

	cmd := &cobra.Command{
		Use:   "add <name> [song-id...]",
		Short: "Create a playlist",
		Long: `Create a playlist holding the given songs. Names are unique.

Examples:
  tunes playlist add Favs song1 song7
  tunes playlist add Road --icon ~/Pictures/road.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fail(errmsg.OpPlaylistCreate, errors.New("empty name"))
			}
			songIDs := args[1:]

			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpStateLoad, err)
			}
			for _, id := range songIDs {
				if _, ok := doc.Songs[id]; !ok {
					return failWith(errmsg.OpPlaylistCreate, name, fmt.Errorf("unknown song %q", id))
				}
			}

			id, err := a.store.AddPlaylist(name, songIDs, icon)
			if err != nil {
				return failWith(errmsg.OpPlaylistCreate, name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", name, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "image copied next to the user data as the playlist icon")
	return cmd
}

func newPlaylistListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List playlists",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listPlaylists(a, cmd)
		},
	}
}

func listPlaylists(a *app, cmd *cobra.Command) error {
	doc, err := a.store.LoadOrEmpty()
	if err != nil {
		return fail(errmsg.OpPlaylistList, err)
	}

	out := cmd.OutOrStdout()
	if len(doc.Playlists) == 0 {
		fmt.Fprintln(out, "No playlists")
		return nil
	}

	t := newTable(out, "ID", "NAME", "SONGS")
	for _, id := range sortedPlaylistIDs(doc) {
		t.row(id, doc.Playlists[id].Name, strconv.Itoa(len(doc.PlaylistSongs(id))))
	}
	t.flush()
	return nil
}

// sortedPlaylistIDs orders playlists by name, case-insensitively.
func sortedPlaylistIDs(doc *state.Document) []string {
	ids := make([]string, 0, len(doc.Playlists))
	for id := range doc.Playlists {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(x, y string) int {
		nx, ny := strings.ToLower(doc.Playlists[x].Name), strings.ToLower(doc.Playlists[y].Name)
		if c := cmp.Compare(nx, ny); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	return ids
}

func newPlaylistShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <playlist>",
		Short: "List the songs of a playlist",
		Long:  `List the songs of a playlist, given by id or name. Songs deleted from the library are skipped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpPlaylistList, err)
			}
			id, err := resolvePlaylist(doc, args[0])
			if err != nil {
				return failWith(errmsg.OpPlaylistList, args[0], err)
			}

			t := newTable(cmd.OutOrStdout(), "ID", "TITLE", "LOCATION")
			for _, songID := range doc.PlaylistSongs(id) {
				s := doc.Songs[songID]
				t.row(songID, truncate(s.Name, titleWidth), s.Loc)
			}
			t.flush()
			return nil
		},
	}
}

func newPlaylistRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <playlist> <new-name>",
		Short: "Rename a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newName := strings.TrimSpace(args[1])
			if newName == "" {
				return failWith(errmsg.OpPlaylistRename, args[0], errors.New("empty name"))
			}
			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpStateLoad, err)
			}
			id, err := resolvePlaylist(doc, args[0])
			if err != nil {
				return failWith(errmsg.OpPlaylistRename, args[0], err)
			}
			if other, taken := doc.PlaylistByName(newName); taken && other != id {
				return failWith(errmsg.OpPlaylistRename, args[0], state.ErrPlaylistExists)
			}

			err = a.store.Merge(state.Patch{RenamePlaylists: map[string]string{id: newName}})
			if err != nil {
				return failWith(errmsg.OpPlaylistRename, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", id, newName)
			return nil
		},
	}
}

func newPlaylistRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <playlist>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete playlists",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpStateLoad, err)
			}
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				id, err := resolvePlaylist(doc, arg)
				if err != nil {
					return failWith(errmsg.OpPlaylistDelete, arg, err)
				}
				ids = append(ids, id)
			}

			if err := a.store.Merge(state.Patch{RemovePlaylists: ids}); err != nil {
				return fail(errmsg.OpPlaylistDelete, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", strings.Join(ids, ", "))
			return nil
		},
	}
}

// resolvePlaylist accepts a playlist id or an exact name.
func resolvePlaylist(doc *state.Document, ref string) (string, error) {
	if _, ok := doc.Playlists[ref]; ok {
		return ref, nil
	}
	if id, ok := doc.PlaylistByName(ref); ok {
		return id, nil
	}
	return "", fmt.Errorf("no playlist %q", ref)
}
