package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/state"
)

func newSettingsCmd(a *app) *cobra.Command {
	var (
		volume   int
		shuffle  bool
		loop     bool
		muted    bool
		darkMode bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Long: `Show the settings. Flags given on the command line are changed; the
others keep their value.

Examples:
  tunes settings
  tunes settings --volume 40 --shuffle`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			patch := &state.SettingsPatch{}
			changed := false
			if flags.Changed("volume") {
				patch.Volume, changed = &volume, true
			}
			if flags.Changed("shuffle") {
				patch.Shuffle, changed = &shuffle, true
			}
			if flags.Changed("loop") {
				patch.Loop, changed = &loop, true
			}
			if flags.Changed("muted") {
				patch.Muted, changed = &muted, true
			}
			if flags.Changed("dark-mode") {
				patch.DarkMode, changed = &darkMode, true
			}

			if changed {
				if err := a.store.Merge(state.Patch{Settings: patch}); err != nil {
					return fail(errmsg.OpSettingsUpdate, err)
				}
			}

			doc, err := a.store.LoadOrEmpty()
			if err != nil {
				return fail(errmsg.OpStateLoad, err)
			}
			printSettings(cmd.OutOrStdout(), doc.Settings)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&volume, "volume", 100, "volume, 0-100")
	f.BoolVar(&shuffle, "shuffle", false, "shuffle")
	f.BoolVar(&loop, "loop", false, "repeat the current song")
	f.BoolVar(&muted, "muted", false, "mute output")
	f.BoolVar(&darkMode, "dark-mode", true, "dark theme")
	return cmd
}

func printSettings(out io.Writer, s state.Settings) {
	t := newTable(out)
	t.row("volume", fmt.Sprintf("%d", s.Volume))
	t.row("muted", yesNo(s.Muted))
	t.row("shuffle", yesNo(s.Shuffle))
	t.row("loop", yesNo(s.Loop))
	t.row("dark mode", yesNo(s.DarkMode))
	t.flush()
}

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <file|->",
		Short: "Merge a JSON patch into the user data",
		Long: `Merge a JSON patch into the user data. Songs overwrite by id, settings
change only the keys given, and playlists are only ever added: a playlist
whose id or name already exists is ignored.

Examples:
  tunes merge patch.json
  echo '{"settings": {"volume": 30}}' | tunes merge -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fail(errmsg.OpStateSave, err)
			}

			patch, err := state.ParsePatch(data)
			if err != nil {
				return fail(errmsg.OpStateSave, err)
			}
			if patch.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to merge")
				return nil
			}
			if err := a.store.Merge(patch); err != nil {
				return fail(errmsg.OpStateSave, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Merged")
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var (
		yes          bool
		keepSettings bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase the library, playlists and caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fail(errmsg.OpStateReset, errors.New("refusing to erase the user data without --yes"))
			}

			doc := state.NewDocument()
			if keepSettings {
				old, err := a.store.LoadOrEmpty()
				if err != nil {
					return fail(errmsg.OpStateLoad, err)
				}
				doc.Settings = old.Settings
			}
			if err := a.store.Replace(doc); err != nil {
				return fail(errmsg.OpStateReset, err)
			}
			a.log.WithField("state", a.store.Location()).Info("User data reset")
			fmt.Fprintln(cmd.OutOrStdout(), "User data reset")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	cmd.Flags().BoolVar(&keepSettings, "keep-settings", false, "keep the current settings")
	return cmd
}
