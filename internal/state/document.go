package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
)

// JSON keys of the persisted document.
const (
	keySongs       = "songs"
	keyPlaylists   = "playlists"
	keySettings    = "settings"
	keySongLengths = "song_lengths"
	keySongMeta    = "song_meta"
	keySongCounter = "song_counter"
)

var reservedKeys = map[string]bool{
	keySongs:       true,
	keyPlaylists:   true,
	keySettings:    true,
	keySongLengths: true,
	keySongMeta:    true,
	keySongCounter: true,
}

// Song is one library entry. Length, Artist and Album are optional cached
// values; the library reconciler fills the path-keyed caches instead.
type Song struct {
	Name   string   `json:"name"`
	Loc    string   `json:"loc"`
	Length *float64 `json:"length,omitempty"`
	Artist string   `json:"artist,omitempty"`
	Album  string   `json:"album,omitempty"`
}

// Playlist is an ordered list of song ids. Ids may reference songs that no
// longer exist; see Document.PlaylistSongs.
type Playlist struct {
	Name  string   `json:"name"`
	Songs []string `json:"songs"`
	Icon  string   `json:"icon,omitempty"`
}

// SongMeta is the cached tag data for a file path.
type SongMeta struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// Settings are the user preferences. Every key is always present.
type Settings struct {
	DarkMode bool `json:"darkMode"`
	Shuffle  bool `json:"shuffle"`
	Loop     bool `json:"loop"`
	Volume   int  `json:"volume"`
	Muted    bool `json:"muted"`
}

// DefaultSettings returns the settings used for keys missing from the document.
func DefaultSettings() Settings {
	return Settings{
		DarkMode: true,
		Volume:   100,
	}
}

// VolumeLevel returns the volume as a 0.0-1.0 gain.
func (s Settings) VolumeLevel() float64 {
	return float64(clampVolume(s.Volume)) / 100
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}

// volumeFromNumber rounds a slider value, which may be fractional, to a
// whole volume in 0-100.
func volumeFromNumber(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(min(max(v, 0), 100)))
}

// UnmarshalJSON decodes over the receiver, so keys missing from data keep
// their current values. The volume may be any JSON number.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	wire := struct {
		*plain
		Volume *float64 `json:"volume"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Volume != nil {
		s.Volume = volumeFromNumber(*wire.Volume)
	}
	return nil
}

// Document is the single persisted user record.
type Document struct {
	Songs       map[string]Song
	Playlists   map[string]Playlist
	Settings    Settings
	SongLengths map[string]float64
	SongMeta    map[string]SongMeta

	// SongCounter is the lowest numeric suffix the next generated song id
	// may use. It only grows, so deleting the newest song never frees its id.
	SongCounter int

	// Extra holds unknown top-level keys, written back verbatim.
	Extra map[string]json.RawMessage
}

// NewDocument returns an empty document with default settings.
func NewDocument() *Document {
	return &Document{
		Songs:       make(map[string]Song),
		Playlists:   make(map[string]Playlist),
		Settings:    DefaultSettings(),
		SongLengths: make(map[string]float64),
		SongMeta:    make(map[string]SongMeta),
		Extra:       make(map[string]json.RawMessage),
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{
		Songs:       maps.Clone(d.Songs),
		Playlists:   make(map[string]Playlist, len(d.Playlists)),
		Settings:    d.Settings,
		SongLengths: maps.Clone(d.SongLengths),
		SongMeta:    maps.Clone(d.SongMeta),
		SongCounter: d.SongCounter,
		Extra:       make(map[string]json.RawMessage, len(d.Extra)),
	}
	for id, p := range d.Playlists {
		p.Songs = append([]string(nil), p.Songs...)
		c.Playlists[id] = p
	}
	for k, v := range d.Extra {
		c.Extra[k] = append(json.RawMessage(nil), v...)
	}
	c.ensure()
	return c
}

// PlaylistSongs returns the playlist's song ids that still reference a song,
// in playlist order. Stale ids are skipped, not removed.
func (d *Document) PlaylistSongs(playlistID string) []string {
	p, ok := d.Playlists[playlistID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(p.Songs))
	for _, id := range p.Songs {
		if _, ok := d.Songs[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// PlaylistByName returns the id of the playlist with the given name.
func (d *Document) PlaylistByName(name string) (string, bool) {
	for id, p := range d.Playlists {
		if p.Name == name {
			return id, true
		}
	}
	return "", false
}

func (d *Document) ensure() {
	if d.Songs == nil {
		d.Songs = make(map[string]Song)
	}
	if d.Playlists == nil {
		d.Playlists = make(map[string]Playlist)
	}
	if d.SongLengths == nil {
		d.SongLengths = make(map[string]float64)
	}
	if d.SongMeta == nil {
		d.SongMeta = make(map[string]SongMeta)
	}
	if d.Extra == nil {
		d.Extra = make(map[string]json.RawMessage)
	}
}

// MarshalJSON writes the document as a single JSON object.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+6)
	for k, v := range d.Extra {
		if !reservedKeys[k] {
			out[k] = v
		}
	}
	out[keySongs] = nonNil(d.Songs)
	out[keyPlaylists] = nonNil(d.Playlists)
	out[keySettings] = d.Settings
	out[keySongLengths] = nonNil(d.SongLengths)
	out[keySongMeta] = nonNil(d.SongMeta)
	if d.SongCounter > 0 {
		out[keySongCounter] = d.SongCounter
	}
	return json.Marshal(out)
}

func nonNil[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}

// UnmarshalJSON reads a single user record object. Missing settings keys
// take their default values.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("document is null")
	}

	doc := NewDocument()
	for key, value := range raw {
		var err error
		switch key {
		case keySongs:
			err = decodeOptional(value, &doc.Songs)
		case keyPlaylists:
			err = decodeOptional(value, &doc.Playlists)
		case keySettings:
			err = decodeOptional(value, &doc.Settings)
		case keySongLengths:
			err = decodeOptional(value, &doc.SongLengths)
		case keySongMeta:
			err = decodeOptional(value, &doc.SongMeta)
		case keySongCounter:
			err = decodeOptional(value, &doc.SongCounter)
		default:
			doc.Extra[key] = value
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	doc.ensure()
	*d = *doc
	return nil
}

// decodeOptional decodes value into dst, leaving dst untouched for null.
func decodeOptional(value json.RawMessage, dst any) error {
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil
	}
	return json.Unmarshal(value, dst)
}

// decodeDocument parses persisted bytes. It accepts a single object or the
// legacy array form, of which only the first record is used. extra reports
// how many additional records were ignored.
func decodeDocument(data []byte) (doc *Document, extra int, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, errors.New("empty document")
	}

	switch trimmed[0] {
	case '{':
		doc = &Document{}
		if err := json.Unmarshal(trimmed, doc); err != nil {
			return nil, 0, err
		}
		return doc, 0, nil
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, 0, err
		}
		if len(records) == 0 {
			return nil, 0, nil
		}
		doc = &Document{}
		if err := json.Unmarshal(records[0], doc); err != nil {
			return nil, 0, fmt.Errorf("record 0: %w", err)
		}
		return doc, len(records) - 1, nil
	default:
		return nil, 0, fmt.Errorf("unexpected document shape starting with %q", trimmed[0])
	}
}

func encodeDocument(doc *Document) ([]byte, error) {
	compact, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "    "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
