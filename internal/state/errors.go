package state

import (
	"errors"
	"fmt"
)

// ErrPlaylistExists is returned by AddPlaylist when the name is taken.
var ErrPlaylistExists = errors.New("playlist already exists")

// CorruptStoreError reports persisted bytes that are not a document.
// It is recoverable: callers degrade to an empty document.
type CorruptStoreError struct {
	Source string
	Err    error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt state document %s: %v", e.Source, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write. The persisted document is left
// as it was before the failed operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist state (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a CorruptStoreError.
func IsCorrupt(err error) bool {
	var ce *CorruptStoreError
	return errors.As(err, &ce)
}
