// Package queue orders the songs handed to the playback engine.
package queue

import (
	"math/rand/v2"
	"slices"
	"time"
)

// Track is a queued song.
type Track struct {
	ID     string // song id, empty for a file outside the library
	Path   string
	Title  string
	Length time.Duration
}

// Queue holds tracks and the order they play in. Without shuffle the play
// order is the insertion order.
type Queue struct {
	tracks  []Track
	order   []int // indexes into tracks, in play order
	pos     int   // index into order, -1 if nothing playing
	shuffle bool
	rng     *rand.Rand
}

// New creates an empty queue. rng drives shuffling; nil means a randomly
// seeded source.
func New(rng *rand.Rand) *Queue {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // play order, not security
	}
	return &Queue{pos: -1, rng: rng}
}

// Current returns the playing track, or nil if none.
func (q *Queue) Current() *Track {
	if q.pos < 0 || q.pos >= len(q.order) {
		return nil
	}
	return &q.tracks[q.order[q.pos]]
}

// CurrentIndex returns the insertion index of the playing track (-1 if none).
func (q *Queue) CurrentIndex() int {
	if q.Current() == nil {
		return -1
	}
	return q.order[q.pos]
}

// Next advances and returns the new current track, or nil at the end.
func (q *Queue) Next() *Track {
	if !q.HasNext() {
		return nil
	}
	q.pos++
	return q.Current()
}

// HasNext returns true if a track plays after the current one.
func (q *Queue) HasNext() bool {
	return q.pos < len(q.order)-1
}

// PeekNext returns the track Next would return without advancing.
func (q *Queue) PeekNext() *Track {
	if !q.HasNext() {
		return nil
	}
	return &q.tracks[q.order[q.pos+1]]
}

// JumpTo makes the track at insertion index current.
// Returns nil if index is out of range.
func (q *Queue) JumpTo(index int) *Track {
	p := slices.Index(q.order, index)
	if p < 0 {
		return nil
	}
	q.pos = p
	return q.Current()
}

// Add appends tracks without changing the current one. When shuffled they
// land at random places among the tracks still to play.
func (q *Queue) Add(tracks ...Track) {
	for _, t := range tracks {
		q.tracks = append(q.tracks, t)
		idx := len(q.tracks) - 1
		if !q.shuffle {
			q.order = append(q.order, idx)
			continue
		}
		at := q.pos + 1 + q.rng.IntN(len(q.order)-q.pos)
		q.order = slices.Insert(q.order, at, idx)
	}
}

// Replace clears the queue, adds tracks and makes the first in play order
// current. Returns that track.
func (q *Queue) Replace(tracks ...Track) *Track {
	q.tracks = q.tracks[:0]
	q.order = q.order[:0]
	q.pos = -1
	if len(tracks) == 0 {
		return nil
	}
	q.tracks = append(q.tracks, tracks...)
	for i := range q.tracks {
		q.order = append(q.order, i)
	}
	if q.shuffle {
		q.rng.Shuffle(len(q.order), func(i, j int) {
			q.order[i], q.order[j] = q.order[j], q.order[i]
		})
	}
	q.pos = 0
	return q.Current()
}

// RemoveAt removes the track at insertion index. Removing the current
// track makes the next one current.
func (q *Queue) RemoveAt(index int) bool {
	if index < 0 || index >= len(q.tracks) {
		return false
	}
	p := slices.Index(q.order, index)
	q.tracks = slices.Delete(q.tracks, index, index+1)
	q.order = slices.Delete(q.order, p, p+1)
	for i, idx := range q.order {
		if idx > index {
			q.order[i] = idx - 1
		}
	}

	if q.pos > p {
		q.pos--
	}
	if q.pos >= len(q.order) {
		q.pos = len(q.order) - 1
	}
	return true
}

// SetShuffle turns shuffling on or off. Turning it on reshuffles the
// tracks still to play; turning it off resumes insertion order after the
// current track.
func (q *Queue) SetShuffle(shuffle bool) {
	if shuffle == q.shuffle {
		return
	}
	q.shuffle = shuffle

	if shuffle {
		rest := q.order[q.pos+1:]
		q.rng.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
		return
	}

	current := q.CurrentIndex()
	q.order = q.order[:0]
	for i := range q.tracks {
		q.order = append(q.order, i)
	}
	q.pos = current
}

// ToggleShuffle flips shuffling and returns the new mode.
func (q *Queue) ToggleShuffle() bool {
	q.SetShuffle(!q.shuffle)
	return q.shuffle
}

func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// Tracks returns the tracks in insertion order.
func (q *Queue) Tracks() []Track {
	return slices.Clone(q.tracks)
}

// Upcoming returns the tracks after the current one, in play order.
func (q *Queue) Upcoming() []Track {
	if !q.HasNext() {
		return nil
	}
	rest := q.order[q.pos+1:]
	out := make([]Track, len(rest))
	for i, idx := range rest {
		out[i] = q.tracks[idx]
	}
	return out
}

func (q *Queue) Len() int {
	return len(q.tracks)
}

func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}
