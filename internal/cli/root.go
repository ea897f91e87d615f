// Package cli implements the tunes command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llehouerou/tunes/internal/config"
	"github.com/llehouerou/tunes/internal/errmsg"
	"github.com/llehouerou/tunes/internal/logging"
	"github.com/llehouerou/tunes/internal/state"
)

// app holds what every command needs. It is filled by the root command's
// PersistentPreRunE and released by close.
type app struct {
	cfgFile string
	verbose bool

	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
	store    *state.Store
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tunes",
		Short: "A music library and player for the command line",
		Long: `Tunes keeps a library of songs and playlists in a single user document
and plays songs from it.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ~/.config/tunes/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newScanCmd(a),
		newSongsCmd(a),
		newPlaylistCmd(a),
		newSettingsCmd(a),
		newMergeCmd(a),
		newPlayCmd(a),
		newWatchCmd(a),
		newInfoCmd(a),
		newResetCmd(a),
	)
	return root
}

func (a *app) init(logOut io.Writer) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFrom(a.cfgFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fail(errmsg.OpConfigLoad, err)
	}

	level := a.cfg.LogLevel()
	if a.verbose {
		level = logrus.DebugLevel.String()
	}
	a.log, a.closeLog, err = logging.New(logging.Options{
		Level:  level,
		Format: a.cfg.LogFormat(),
		File:   a.cfg.Log.File,
		Output: logOut,
	})
	if err != nil {
		return fail(errmsg.OpInitialize, err)
	}

	a.store, err = state.Open(state.Options{
		Path:      a.cfg.State.File,
		Backend:   a.cfg.State.Backend,
		ImagesDir: a.cfg.State.ImagesFolder,
		Logger:    a.log,
	})
	if err != nil {
		return fail(errmsg.OpStateLoad, err)
	}

	a.log.WithFields(logrus.Fields{
		"state":   a.store.Location(),
		"backend": a.cfg.State.Backend,
		"music":   a.cfg.MusicFolder,
	}).Debug("Initialized")
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}

// Execute runs the command line with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil && cerr != nil {
		err = fail(errmsg.OpStateSave, cerr)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
