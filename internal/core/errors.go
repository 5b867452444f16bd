package core

import "errors"

// Sentinel errors returned at the I/O and session boundary. The pure
// pipeline functions never fail; these come from ParseReader and Service.
var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidSlot     = errors.New("invalid slot: must be \"a\" or \"b\"")
	ErrSessionNotFound = errors.New("session not found")
)
