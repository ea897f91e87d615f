package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Patch describes a merge into the document. Zero-valued fields are left
// alone. Each field has its own merge rule; see Store.Merge.
type Patch struct {
	// Playlist is appended under a fresh id unless its name is taken.
	Playlist *Playlist
	// Playlists are added by id; existing ids and names are never overwritten.
	Playlists map[string]Playlist
	// Songs are merged key by key and may overwrite.
	Songs map[string]Song
	// NewSongs are added under freshly generated song ids.
	NewSongs []Song
	// Settings overwrites only the keys that are set.
	Settings *SettingsPatch
	// SongLengths and SongMeta are merged key by key.
	SongLengths map[string]float64
	SongMeta    map[string]SongMeta
	// Extra sets unknown top-level keys verbatim.
	Extra map[string]json.RawMessage

	RemoveSongs     []string
	RemovePlaylists []string
	// RenamePlaylists maps playlist id to new name. A rename to a name used
	// by another playlist is dropped.
	RenamePlaylists map[string]string
}

// SettingsPatch holds optional settings values; nil means "keep".
type SettingsPatch struct {
	DarkMode *bool `json:"darkMode,omitempty"`
	Shuffle  *bool `json:"shuffle,omitempty"`
	Loop     *bool `json:"loop,omitempty"`
	Volume   *int  `json:"volume,omitempty"`
	Muted    *bool `json:"muted,omitempty"`
}

// UnmarshalJSON accepts any JSON number for the volume and stores it
// rounded and clamped to 0-100.
func (p *SettingsPatch) UnmarshalJSON(data []byte) error {
	type plain SettingsPatch
	wire := struct {
		*plain
		Volume *float64 `json:"volume"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Volume != nil {
		v := volumeFromNumber(*wire.Volume)
		p.Volume = &v
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Playlist == nil && len(p.Playlists) == 0 && len(p.Songs) == 0 &&
		len(p.NewSongs) == 0 && p.Settings == nil && len(p.SongLengths) == 0 &&
		len(p.SongMeta) == 0 && len(p.Extra) == 0 && len(p.RemoveSongs) == 0 &&
		len(p.RemovePlaylists) == 0 && len(p.RenamePlaylists) == 0
}

// Result reports the ids generated by a merge.
type Result struct {
	SongIDs     []string
	PlaylistIDs []string
}

// ParsePatch decodes a JSON patch object. A "playlists" value holding both
// "name" and "songs" is a single playlist; any other object is a mapping of
// playlist id to playlist.
func ParsePatch(data []byte) (Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Patch{}, fmt.Errorf("patch must be a JSON object: %w", err)
	}

	var p Patch
	for key, value := range raw {
		var err error
		switch key {
		case keyPlaylists:
			err = parsePlaylists(value, &p)
		case keySongs:
			err = decodeOptional(value, &p.Songs)
		case keySettings:
			p.Settings = &SettingsPatch{}
			err = decodeOptional(value, p.Settings)
		case keySongLengths:
			err = decodeOptional(value, &p.SongLengths)
		case keySongMeta:
			err = decodeOptional(value, &p.SongMeta)
		case keySongCounter:
			// The counter is owned by the store; a patch cannot lower it.
			continue
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = value
		}
		if err != nil {
			return Patch{}, fmt.Errorf("patch field %q: %w", key, err)
		}
	}
	return p, nil
}

func parsePlaylists(value json.RawMessage, p *Patch) error {
	var fields map[string]json.RawMessage
	if err := decodeOptional(value, &fields); err != nil {
		return err
	}
	_, hasName := fields["name"]
	_, hasSongs := fields["songs"]
	if hasName && hasSongs {
		var pl Playlist
		if err := json.Unmarshal(value, &pl); err != nil {
			return err
		}
		p.Playlist = &pl
		return nil
	}
	return decodeOptional(value, &p.Playlists)
}

// applyPatch merges p into doc in place.
func applyPatch(doc *Document, p Patch) Result {
	doc.ensure()
	var res Result

	// Record the high-water mark before anything is removed.
	doc.SongCounter = max(doc.SongCounter, nextSongIndex(doc))

	for _, id := range p.RemoveSongs {
		delete(doc.Songs, id)
	}
	for _, id := range p.RemovePlaylists {
		delete(doc.Playlists, id)
	}
	for _, id := range slices.Sorted(maps.Keys(p.RenamePlaylists)) {
		pl, ok := doc.Playlists[id]
		name := p.RenamePlaylists[id]
		if !ok || name == "" {
			continue
		}
		if other, taken := doc.PlaylistByName(name); taken && other != id {
			continue
		}
		pl.Name = name
		doc.Playlists[id] = pl
	}

	if p.Playlist != nil {
		if _, exists := doc.PlaylistByName(p.Playlist.Name); !exists {
			id := NextPlaylistID(doc.Playlists)
			doc.Playlists[id] = clonePlaylist(*p.Playlist)
			res.PlaylistIDs = append(res.PlaylistIDs, id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(p.Playlists)) {
		pl := p.Playlists[id]
		if _, exists := doc.Playlists[id]; exists {
			continue
		}
		if _, exists := doc.PlaylistByName(pl.Name); exists {
			continue
		}
		doc.Playlists[id] = clonePlaylist(pl)
		res.PlaylistIDs = append(res.PlaylistIDs, id)
	}

	maps.Copy(doc.Songs, p.Songs)
	if len(p.NewSongs) > 0 {
		next := nextSongIndex(doc)
		for _, s := range p.NewSongs {
			id := songIDPrefix + strconv.Itoa(next)
			doc.Songs[id] = s
			res.SongIDs = append(res.SongIDs, id)
			next++
		}
		doc.SongCounter = next
	}
	// Keep the high-water mark in step with ids merged verbatim.
	doc.SongCounter = max(doc.SongCounter, nextSongIndex(doc))

	if p.Settings != nil {
		applySettings(&doc.Settings, *p.Settings)
	}

	maps.Copy(doc.SongLengths, p.SongLengths)
	maps.Copy(doc.SongMeta, p.SongMeta)

	for k, v := range p.Extra {
		if reservedKeys[k] {
			continue
		}
		doc.Extra[k] = v
	}

	return res
}

func applySettings(s *Settings, p SettingsPatch) {
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.Shuffle != nil {
		s.Shuffle = *p.Shuffle
	}
	if p.Loop != nil {
		s.Loop = *p.Loop
	}
	if p.Volume != nil {
		s.Volume = clampVolume(*p.Volume)
	}
	if p.Muted != nil {
		s.Muted = *p.Muted
	}
}

func clonePlaylist(p Playlist) Playlist {
	p.Songs = append([]string{}, p.Songs...)
	return p
}
