// internal/state/mock.go
package state

import "sync"

// Mock is an in-memory test double for Store. It applies the same merge
// rules as Store.
type Mock struct {
	mu         sync.Mutex
	doc        *Document
	loadErr    error
	mergeErr   error
	mergeCalls []Patch
	closed     bool
}

// NewMock creates a mock store holding doc (nil means nothing persisted).
func NewMock(doc *Document) *Mock {
	m := &Mock{}
	if doc != nil {
		m.doc = doc.Clone()
	}
	return m
}

func (m *Mock) Load() (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.doc == nil {
		return nil, nil
	}
	return m.doc.Clone(), nil
}

func (m *Mock) LoadOrEmpty() (*Document, error) {
	doc, err := m.Load()
	if IsCorrupt(err) {
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

func (m *Mock) Replace(doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return &PersistenceError{Op: "replace", Err: m.mergeErr}
	}
	if doc == nil {
		doc = NewDocument()
	}
	m.doc = doc.Clone()
	return nil
}

func (m *Mock) Merge(patch Patch) error {
	_, err := m.merge(patch)
	return err
}

func (m *Mock) Apply(patch Patch) (Result, error) {
	return m.merge(patch)
}

func (m *Mock) merge(patch Patch) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeCalls = append(m.mergeCalls, patch)
	if m.mergeErr != nil {
		return Result{}, &PersistenceError{Op: "merge", Err: m.mergeErr}
	}
	doc := NewDocument()
	if m.doc != nil {
		doc = m.doc.Clone()
	}
	res := applyPatch(doc, patch)
	m.doc = doc
	return res, nil
}

func (m *Mock) AddSongs(songs []Song) ([]string, error) {
	res, err := m.merge(Patch{NewSongs: songs})
	return res.SongIDs, err
}

func (m *Mock) AddPlaylist(name string, songIDs []string, iconPath string) (string, error) {
	doc, err := m.LoadOrEmpty()
	if err != nil {
		return "", err
	}
	if _, exists := doc.PlaylistByName(name); exists {
		return "", ErrPlaylistExists
	}
	res, err := m.merge(Patch{Playlist: &Playlist{Name: name, Songs: songIDs, Icon: iconPath}})
	if err != nil || len(res.PlaylistIDs) == 0 {
		return "", err
	}
	return res.PlaylistIDs[0], nil
}

func (m *Mock) Close() error {
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetLoadError(err error) { m.loadErr = err }

func (m *Mock) SetMergeError(err error) { m.mergeErr = err }

func (m *Mock) MergeCalls() []Patch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Patch(nil), m.mergeCalls...)
}

func (m *Mock) IsClosed() bool { return m.closed }

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
