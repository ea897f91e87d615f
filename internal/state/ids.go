package state

import (
	"regexp"
	"strconv"
)

const (
	songIDPrefix     = "song"
	playlistIDPrefix = "playlist"
)

var (
	songIDPattern     = regexp.MustCompile(`^song(\d+)$`)
	playlistIDPattern = regexp.MustCompile(`^pl(?:aylist)?(\d+)$`)
)

// maxSuffix returns the largest numeric suffix among ids matching pattern,
// or -1 when none match.
func maxSuffix[V any](ids map[string]V, pattern *regexp.Regexp) int {
	best := -1
	for id := range ids {
		m := pattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		best = max(best, n)
	}
	return best
}

func nextSongIndex(doc *Document) int {
	return max(maxSuffix(doc.Songs, songIDPattern)+1, doc.SongCounter)
}

// NextSongID returns the id the next added song will receive.
func NextSongID(doc *Document) string {
	return songIDPrefix + strconv.Itoa(nextSongIndex(doc))
}

// NextPlaylistID returns a free playlist id. The number is the playlist
// count, or one past the largest numeric suffix when that is higher.
func NextPlaylistID(playlists map[string]Playlist) string {
	n := max(len(playlists), maxSuffix(playlists, playlistIDPattern)+1)
	for {
		id := playlistIDPrefix + strconv.Itoa(n)
		if _, taken := playlists[id]; !taken {
			return id
		}
		n++
	}
}
