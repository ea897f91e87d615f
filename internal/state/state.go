// Package state persists the user document: songs, playlists, settings and
// the derived metadata caches.
//
// The Store holds no cached copy. Every call reads the persisted form, so
// the file (or sqlite row) is the single source of truth. Writes go through
// Merge, which serializes read-merge-write under a mutex, or Replace for
// full resets.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/tunes/internal/logging"
)

const (
	appName      = "tunes"
	docFileName  = "user.json"
	dbFileName   = "tunes.db"
	imagesDirKey = "images"

	corruptSuffix = ".corrupt"
)

// Options configures Open.
type Options struct {
	// Path of the document. Empty means the XDG data directory.
	Path string
	// Backend is BackendJSON (default) or BackendSQLite.
	Backend string
	// ImagesDir receives copied playlist icons. Empty means next to Path.
	ImagesDir string
	Logger    logrus.FieldLogger
}

type Store struct {
	mu        sync.Mutex
	backend   backend
	imagesDir string
	log       logrus.FieldLogger
}

// Open opens the store described by opts. Nothing is written until the
// first Merge or Replace.
func Open(opts Options) (*Store, error) {
	var (
		b   backend
		err error
	)

	path := opts.Path
	switch opts.Backend {
	case "", BackendJSON:
		if path == "" {
			if path, err = xdg.DataFile(filepath.Join(appName, docFileName)); err != nil {
				return nil, err
			}
		}
		b = &fileBackend{path: path}
	case BackendSQLite:
		if path == "" {
			if path, err = xdg.DataFile(filepath.Join(appName, dbFileName)); err != nil {
				return nil, err
			}
		}
		if b, err = openSQLite(path); err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}

	imagesDir := opts.ImagesDir
	if imagesDir == "" {
		imagesDir = filepath.Join(filepath.Dir(path), imagesDirKey)
	}

	return newStore(b, imagesDir, opts.Logger), nil
}

func newStore(b backend, imagesDir string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		backend:   b,
		imagesDir: imagesDir,
		log:       log.WithField("component", "state"),
	}
}

// Location returns where the document is persisted.
func (s *Store) Location() string {
	return s.backend.location()
}

// ImagesDir returns the directory playlist icons are copied into.
func (s *Store) ImagesDir() string {
	return s.imagesDir
}

// Close releases the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.close()
}

// Load reads the persisted document. It returns nil, nil when nothing has
// been persisted yet and a *CorruptStoreError when the bytes are not a
// document.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Document, error) {
	data, err := s.backend.read()
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	doc, extra, err := decodeDocument(data)
	if err != nil {
		return nil, &CorruptStoreError{Source: s.backend.location(), Err: err}
	}
	if extra > 0 {
		s.log.WithField("ignored_records", extra).
			Warn("Legacy document holds several records, using the first")
	}
	return doc, nil
}

// LoadOrEmpty is Load with absent and corrupt documents both degraded to a
// fresh document. A corrupt document is logged. Read failures other than
// corruption are returned.
func (s *Store) LoadOrEmpty() (*Document, error) {
	doc, err := s.Load()
	return s.orEmpty(doc, err)
}

func (s *Store) orEmpty(doc *Document, err error) (*Document, error) {
	if IsCorrupt(err) {
		s.log.WithError(err).Warn("Ignoring corrupt state document")
		return NewDocument(), nil
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return NewDocument(), nil
	}
	return doc, nil
}

// Replace overwrites the whole persisted document.
func (s *Store) Replace(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist("replace", doc)
}

func (s *Store) persist(op string, doc *Document) error {
	if doc == nil {
		doc = NewDocument()
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	if err := s.backend.write(data); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// Merge applies patch to the persisted document and writes it back.
//
// Per field:
//   - Playlist: appended under a fresh id unless the name exists (dropped).
//   - Playlists: added by id; existing ids or names are never overwritten.
//   - Songs: merged key by key, overwriting.
//   - NewSongs: added under fresh song ids.
//   - Settings: only the provided keys change.
//   - SongLengths, SongMeta: merged key by key.
//   - Extra: set verbatim.
//
// A failed write returns a *PersistenceError and leaves the persisted
// document unchanged.
func (s *Store) Merge(patch Patch) error {
	_, err := s.merge(patch)
	return err
}

// Apply is Merge that also reports the ids the patch generated.
func (s *Store) Apply(patch Patch) (Result, error) {
	return s.merge(patch)
}

func (s *Store) merge(patch Patch) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if IsCorrupt(err) {
		if kerr := s.keepCorrupt(); kerr != nil {
			return Result{}, &PersistenceError{Op: "merge", Err: kerr}
		}
	}
	doc, err = s.orEmpty(doc, err)
	if err != nil {
		return Result{}, err
	}

	res := applyPatch(doc, patch)
	if err := s.persist("merge", doc); err != nil {
		return Result{}, err
	}
	return res, nil
}

// keepCorrupt copies the unreadable document next to it before a merge
// replaces it with a fresh one.
func (s *Store) keepCorrupt() error {
	data, err := s.backend.read()
	if err != nil || data == nil {
		return err
	}
	dst := s.backend.location() + corruptSuffix
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("keep corrupt document: %w", err)
	}
	s.log.WithField("copy", dst).Warn("Kept a copy of the corrupt state document")
	return nil
}

// AddSongs merges songs under freshly generated ids and returns the ids in
// the order of songs.
func (s *Store) AddSongs(songs []Song) ([]string, error) {
	if len(songs) == 0 {
		return nil, nil
	}
	res, err := s.merge(Patch{NewSongs: songs})
	if err != nil {
		return nil, err
	}
	return res.SongIDs, nil
}
