package library

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/tunes/internal/state"
	"github.com/llehouerou/tunes/internal/tags"
)

// MetadataReader reads tags and duration from an audio file.
type MetadataReader interface {
	Read(path string) (*tags.Info, error)
}

// cacheEntry is the in-memory metadata of one file path.
type cacheEntry struct {
	artist    string
	album     string
	length    time.Duration
	hasMeta   bool
	hasLength bool
}

func (e cacheEntry) complete() bool {
	return e.hasMeta && e.hasLength
}

// resolver resolves song metadata for one view computation and collects the
// values that must be written back to the store.
type resolver struct {
	cache  map[string]cacheEntry
	reader MetadataReader
	log    logrus.FieldLogger

	// persisted is loaded on the first memory miss only.
	persisted     *state.Document
	loadPersisted func() *state.Document

	newMeta    map[string]state.SongMeta
	newLengths map[string]float64
}

func (r *resolver) resolve(id string, song state.Song) item {
	it := item{id: id, title: song.Name}
	path := song.Loc
	if path == "" {
		it.artist, it.album = song.Artist, song.Album
		if song.Length != nil {
			it.length = secondsToDuration(*song.Length)
		}
		return it
	}

	entry := r.cache[path]
	if !entry.complete() {
		entry = r.fromPersisted(path, song, entry)
	}
	if !entry.complete() {
		entry = r.fromReader(path, entry)
	}
	r.cache[path] = entry

	it.artist, it.album, it.length = entry.artist, entry.album, entry.length
	return it
}

// fromPersisted fills the entry from the document caches, then from the
// values stored inline on the song.
func (r *resolver) fromPersisted(path string, song state.Song, entry cacheEntry) cacheEntry {
	if r.persisted == nil && r.loadPersisted != nil {
		r.persisted = r.loadPersisted()
		r.loadPersisted = nil
	}
	doc := r.persisted

	if !entry.hasMeta {
		if doc != nil {
			if m, ok := doc.SongMeta[path]; ok {
				entry.artist, entry.album, entry.hasMeta = m.Artist, m.Album, true
			}
		}
		if !entry.hasMeta && (song.Artist != "" || song.Album != "") {
			entry.artist, entry.album, entry.hasMeta = song.Artist, song.Album, true
		}
	}
	if !entry.hasLength {
		if doc != nil {
			if secs, ok := doc.SongLengths[path]; ok {
				entry.length, entry.hasLength = secondsToDuration(secs), true
			}
		}
		if !entry.hasLength && song.Length != nil {
			entry.length, entry.hasLength = secondsToDuration(*song.Length), true
		}
	}
	return entry
}

// fromReader reads the file. A failure is cached in memory so the file is
// not read again, but nothing is persisted for it.
func (r *resolver) fromReader(path string, entry cacheEntry) cacheEntry {
	if r.reader == nil {
		entry.hasMeta, entry.hasLength = true, true
		return entry
	}

	info, err := r.reader.Read(path)
	if err != nil {
		r.log.WithError(err).WithField("path", path).Debug("Metadata unavailable")
		entry.hasMeta, entry.hasLength = true, true
		return entry
	}

	if !entry.hasMeta {
		entry.artist, entry.album, entry.hasMeta = info.Artist, info.Album, true
		r.newMeta[path] = state.SongMeta{Artist: info.Artist, Album: info.Album}
	}
	if !entry.hasLength {
		entry.length, entry.hasLength = info.Duration, true
		if info.Duration > 0 {
			r.newLengths[path] = info.Duration.Seconds()
		}
	}
	return entry
}

// patch returns the write-back patch, or false when nothing was read.
func (r *resolver) patch() (state.Patch, bool) {
	if len(r.newMeta) == 0 && len(r.newLengths) == 0 {
		return state.Patch{}, false
	}
	p := state.Patch{}
	if len(r.newMeta) > 0 {
		p.SongMeta = r.newMeta
	}
	if len(r.newLengths) > 0 {
		p.SongLengths = r.newLengths
	}
	return p, true
}

func secondsToDuration(secs float64) time.Duration {
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
