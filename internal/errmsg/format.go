// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryScan    Op = "scan library"
	OpLibraryLoad    Op = "load library"
	OpLibraryRebuild Op = "rebuild library view"
	OpLibraryWatch   Op = "watch music folder"
	OpMetadataRead   Op = "read file tags"

	// Playlist operations
	OpPlaylistCreate Op = "create playlist"
	OpPlaylistRename Op = "rename playlist"
	OpPlaylistDelete Op = "delete playlist"
	OpPlaylistList   Op = "list playlists"

	// State operations
	OpStateLoad  Op = "load user data"
	OpStateSave  Op = "save user data"
	OpStateReset Op = "reset user data"

	// Settings
	OpSettingsUpdate Op = "update settings"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"
	OpPlaybackStop  Op = "stop playback"

	// Initialization
	OpInitialize Op = "initialize application"
	OpConfigLoad Op = "load configuration"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Wrap returns err annotated with op, or nil when err is nil. The result
// still matches the original error with errors.Is and errors.As.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
