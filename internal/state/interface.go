// internal/state/interface.go
package state

// Interface defines the state store contract for dependency injection and testing.
type Interface interface {
	Load() (*Document, error)
	LoadOrEmpty() (*Document, error)
	Replace(doc *Document) error
	Merge(patch Patch) error
	Apply(patch Patch) (Result, error)
	AddSongs(songs []Song) ([]string, error)
	AddPlaylist(name string, songIDs []string, iconPath string) (string, error)
	Close() error
}

// Verify Store implements Interface at compile time.
var _ Interface = (*Store)(nil)
