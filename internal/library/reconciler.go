// Package library derives the displayed song list from the state document.
//
// The Reconciler resolves artist, album and length for every song through an
// in-memory cache, the caches persisted in the document and finally the
// audio files themselves. It filters and sorts the result and publishes a
// new View only when something visible changed.
package library

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/tunes/internal/logging"
	"github.com/llehouerou/tunes/internal/state"
)

const DefaultMinRebuildInterval = 250 * time.Millisecond

// ErrClosed is returned by Refresh, SetQuery and SetSort after Close.
var ErrClosed = errors.New("library reconciler closed")

// Store is the part of state.Store the reconciler uses.
type Store interface {
	LoadOrEmpty() (*state.Document, error)
	Merge(patch state.Patch) error
}

// Trigger tells Refresh why a rebuild was requested.
type Trigger int

const (
	// TriggerPoll is a passive check, rate-limited to one rebuild per
	// minimum interval.
	TriggerPoll Trigger = iota
	// TriggerUser is an explicit request and rebuilds immediately.
	TriggerUser
)

func (t Trigger) String() string {
	switch t {
	case TriggerPoll:
		return "poll"
	case TriggerUser:
		return "user"
	default:
		return "unknown"
	}
}

// Options configures New.
type Options struct {
	// MinRebuildInterval rate-limits TriggerPoll rebuilds. Zero means
	// DefaultMinRebuildInterval.
	MinRebuildInterval time.Duration
	Query              string
	Sort               SortKey // empty means SortTitle
	Logger             logrus.FieldLogger
}

// Reconciler keeps a View consistent with the store.
//
// mu guards the metadata cache and the displayed state. Publishing on the
// views channel never blocks.
type Reconciler struct {
	mu          sync.Mutex
	store       Store
	reader      MetadataReader
	log         logrus.FieldLogger
	minInterval time.Duration

	cache map[string]cacheEntry

	query string
	sort  SortKey

	displayed   *View
	signature   uint64
	lastRebuild time.Time
	pending     *time.Timer
	deferGen    uint64 // identifies the timer in pending
	closed      bool

	views chan View
}

// New creates a Reconciler. reader may be nil, in which case songs without
// cached metadata show the defaults.
func New(store Store, reader MetadataReader, opts Options) *Reconciler {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	r := &Reconciler{
		store:       store,
		reader:      reader,
		log:         log.WithField("component", "library"),
		minInterval: opts.MinRebuildInterval,
		cache:       make(map[string]cacheEntry),
		query:       opts.Query,
		sort:        opts.Sort,
		views:       make(chan View, 1),
	}
	if r.minInterval <= 0 {
		r.minInterval = DefaultMinRebuildInterval
	}
	if r.sort == "" {
		r.sort = SortTitle
	}
	return r
}

// ComputeView resolves, filters and sorts songs. Metadata read from files is
// written back to the store once per call; a failed write is logged.
// Identical inputs give identical views.
func (r *Reconciler) ComputeView(songs map[string]state.Song, query string, sort SortKey) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.computeLocked(songs, nil, query, sort)
}

// computeLocked builds the view. doc supplies the persisted caches; when nil
// they are loaded from the store on the first memory miss.
func (r *Reconciler) computeLocked(
	songs map[string]state.Song,
	doc *state.Document,
	query string,
	sort SortKey,
) View {
	if sort == "" {
		sort = SortTitle
	}

	res := &resolver{
		cache:      r.cache,
		reader:     r.reader,
		log:        r.log,
		persisted:  doc,
		newMeta:    make(map[string]state.SongMeta),
		newLengths: make(map[string]float64),
	}
	if doc == nil {
		res.loadPersisted = r.loadPersisted
	}

	items := make([]item, 0, len(songs))
	for id, song := range songs {
		items = append(items, res.resolve(id, song))
	}
	items = filterItems(items, normalizeQuery(query))
	sortItems(items, sort)

	if p, ok := res.patch(); ok {
		if err := r.store.Merge(p); err != nil {
			r.log.WithError(err).Warn("Could not persist metadata cache")
		} else {
			r.log.WithFields(logrus.Fields{
				"meta":    len(p.SongMeta),
				"lengths": len(p.SongLengths),
			}).Debug("Persisted metadata cache")
		}
	}

	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = it.row()
	}
	return View{Rows: rows, Query: query, Sort: sort}
}

func (r *Reconciler) loadPersisted() *state.Document {
	doc, err := r.store.LoadOrEmpty()
	if err != nil {
		r.log.WithError(err).Warn("Could not load persisted metadata cache")
		return nil
	}
	return doc
}

// Refresh reloads the songs and publishes a new view unless nothing visible
// changed. It reports whether a view was published.
//
// A TriggerPoll arriving less than the minimum interval after the previous
// rebuild is deferred until the interval lapses and then evaluated.
func (r *Reconciler) Refresh(trigger Trigger) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}

	if trigger == TriggerPoll && !r.lastRebuild.IsZero() {
		if wait := r.minInterval - time.Since(r.lastRebuild); wait > 0 {
			r.deferLocked(wait)
			return false, nil
		}
	}
	return r.rebuildLocked(trigger)
}

// SetQuery changes the search text and rebuilds immediately.
func (r *Reconciler) SetQuery(query string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}
	r.query = query
	return r.rebuildLocked(TriggerUser)
}

// SetSort changes the sort key and rebuilds immediately.
func (r *Reconciler) SetSort(sort SortKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrClosed
	}
	if sort == "" {
		sort = SortTitle
	}
	r.sort = sort
	return r.rebuildLocked(TriggerUser)
}

func (r *Reconciler) deferLocked(wait time.Duration) {
	if r.pending != nil {
		return
	}
	r.log.WithField("wait", wait).Debug("Deferring library rebuild")
	r.deferGen++
	gen := r.deferGen
	r.pending = time.AfterFunc(wait, func() { r.runDeferred(gen) })
}

// runDeferred runs the rebuild armed as generation gen. A timer that fired
// after being cancelled or replaced finds another generation and does nothing.
func (r *Reconciler) runDeferred(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.pending == nil || gen != r.deferGen {
		return
	}
	r.pending = nil
	if _, err := r.rebuildLocked(TriggerPoll); err != nil {
		r.log.WithError(err).Warn("Deferred library rebuild failed")
	}
}

func (r *Reconciler) rebuildLocked(trigger Trigger) (bool, error) {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}

	doc, err := r.store.LoadOrEmpty()
	if err != nil {
		return false, fmt.Errorf("load songs: %w", err)
	}
	if doc == nil {
		doc = state.NewDocument()
	}
	r.lastRebuild = time.Now()

	sig, err := Signature(doc.Songs)
	if err != nil {
		return false, fmt.Errorf("songs signature: %w", err)
	}
	view := r.computeLocked(doc.Songs, doc, r.query, r.sort)

	if r.unchangedLocked(sig, view) {
		r.log.WithField("trigger", trigger).Debug("Library unchanged")
		return false, nil
	}

	r.signature = sig
	r.displayed = &view
	r.publishLocked(view)
	r.log.WithFields(logrus.Fields{
		"trigger": trigger,
		"rows":    len(view.Rows),
	}).Debug("Library view rebuilt")
	return true, nil
}

func (r *Reconciler) unchangedLocked(sig uint64, view View) bool {
	if r.displayed == nil || sig != r.signature {
		return false
	}
	if normalizeQuery(r.displayed.Query) != normalizeQuery(view.Query) || r.displayed.Sort != view.Sort {
		return false
	}
	return slices.Equal(r.displayed.IDs(), view.IDs())
}

// publishLocked replaces any unread view with v.
func (r *Reconciler) publishLocked(v View) {
	select {
	case r.views <- v:
		return
	default:
	}
	select {
	case <-r.views:
	default:
	}
	select {
	case r.views <- v:
	default:
	}
}

// Views delivers rebuilt views. Only the latest unread view is kept.
func (r *Reconciler) Views() <-chan View {
	return r.views
}

// Displayed returns the last published view.
func (r *Reconciler) Displayed() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.displayed == nil {
		return View{}, false
	}
	return *r.displayed, true
}

func (r *Reconciler) Query() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query
}

func (r *Reconciler) Sort() SortKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sort
}

// Close cancels a deferred rebuild. Later calls to Refresh, SetQuery and
// SetSort return ErrClosed.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}
