package library

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/llehouerou/tunes/internal/state"
)

type signatureEntry struct {
	ID   string
	Name string
	Loc  string
}

// Signature hashes the (id, name, loc) tuples of songs. Equal song sets give
// equal signatures regardless of map order; cached metadata does not count.
func Signature(songs map[string]state.Song) (uint64, error) {
	entries := make([]signatureEntry, 0, len(songs))
	for id, s := range songs {
		entries = append(entries, signatureEntry{ID: id, Name: s.Name, Loc: s.Loc})
	}
	slices.SortFunc(entries, func(a, b signatureEntry) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return hashstructure.Hash(entries, hashstructure.FormatV2, nil)
}
