package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// UnknownField is displayed when a song's artist or album cannot be resolved.
const UnknownField = "Unknown"

// SortKey selects the view order.
type SortKey string

const (
	SortTitle  SortKey = "title"
	SortArtist SortKey = "artist"
	SortAlbum  SortKey = "album"
	SortLength SortKey = "length"
)

// SortKeys lists the supported keys in menu order.
var SortKeys = []SortKey{SortTitle, SortArtist, SortAlbum, SortLength}

// ParseSortKey parses a sort key case-insensitively. Empty means SortTitle.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortTitle, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Row is one displayed song.
type Row struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Length time.Duration // 0 when unknown
}

// View is an ordered list of rows and the parameters that produced it.
type View struct {
	Rows  []Row
	Query string
	Sort  SortKey
}

// IDs returns the song ids in display order.
func (v View) IDs() []string {
	ids := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		ids[i] = r.ID
	}
	return ids
}

// TotalLength sums the known row lengths.
func (v View) TotalLength() time.Duration {
	var total time.Duration
	for _, r := range v.Rows {
		total += r.Length
	}
	return total
}

// item is a song with its resolved metadata, before display defaults.
type item struct {
	id     string
	title  string
	artist string
	album  string
	length time.Duration
}

func (it item) row() Row {
	r := Row{
		ID:     it.id,
		Title:  it.title,
		Artist: it.artist,
		Album:  it.album,
		Length: it.length,
	}
	if r.Artist == "" {
		r.Artist = UnknownField
	}
	if r.Album == "" {
		r.Album = UnknownField
	}
	return r
}

// normalizeQuery trims and lowercases a search string.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// filterItems keeps the items whose "title artist album" contains query.
// query must already be normalized.
func filterItems(items []item, query string) []item {
	if query == "" {
		return items
	}
	out := items[:0:0]
	for _, it := range items {
		hay := strings.ToLower(it.title + " " + it.artist + " " + it.album)
		if strings.Contains(hay, query) {
			out = append(out, it)
		}
	}
	return out
}

// sortItems orders items by key, then title, then id. Title, artist and
// album compare case-insensitively.
func sortItems(items []item, key SortKey) {
	byTitle := func(a, b item) int {
		if c := cmp.Compare(strings.ToLower(a.title), strings.ToLower(b.title)); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	}

	var primary func(a, b item) int
	switch key {
	case SortArtist:
		primary = func(a, b item) int {
			return cmp.Compare(strings.ToLower(a.artist), strings.ToLower(b.artist))
		}
	case SortAlbum:
		primary = func(a, b item) int {
			return cmp.Compare(strings.ToLower(a.album), strings.ToLower(b.album))
		}
	case SortLength:
		primary = func(a, b item) int {
			return cmp.Compare(a.length, b.length)
		}
	default:
		primary = func(item, item) int { return 0 }
	}

	slices.SortStableFunc(items, func(a, b item) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return byTitle(a, b)
	})
}
