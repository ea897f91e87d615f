package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/tunes/internal/logging"
	"github.com/llehouerou/tunes/internal/tags"
)

const DefaultWatchDebounce = 500 * time.Millisecond

// Watcher monitors a music folder recursively and calls onChange once the
// folder has been quiet for the debounce period after a relevant event.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onChange func()
	log      logrus.FieldLogger

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// WatcherOptions configures NewWatcher.
type WatcherOptions struct {
	Debounce time.Duration // zero means DefaultWatchDebounce
	Logger   logrus.FieldLogger
}

// NewWatcher starts watching dir and every directory below it.
func NewWatcher(dir string, onChange func(), opts WatcherOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	w := &Watcher{
		fsw:      fsw,
		dir:      dir,
		debounce: opts.Debounce,
		onChange: onChange,
		log:      log.WithField("component", "watcher"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultWatchDebounce
	}

	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.run()

	w.log.WithField("dir", dir).Info("File watcher started")
	return w, nil
}

// addTree recursively walks and adds subdirectories to the watcher.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("File watcher error")

		case <-timer.C:
			w.log.Debug("Music folder changed")
			w.onChange()
		}
	}
}

// relevant filters events down to music files and directories. New
// directories are added to the watch list.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.WithError(err).WithField("dir", event.Name).Warn("Could not watch new directory")
			} else {
				w.log.WithField("dir", event.Name).Debug("Watching new directory")
			}
			return true
		}
	}

	if tags.IsMusicFile(event.Name) {
		return true
	}
	// A removed or renamed directory can no longer be stat'ed.
	return filepath.Ext(event.Name) == "" && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename))
}

// Close stops the watcher and waits for its goroutine. A pending change
// notification is discarded.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
		<-w.done
		if errors.Is(err, os.ErrClosed) {
			err = nil
		}
	})
	return err
}
