package room

import "errors"

// Sentinel errors for room and session lookup failures.
var (
	// ErrRoomNotFound is returned when an operation targets a room that
	// no longer exists (already reaped or never created).
	ErrRoomNotFound = errors.New("room: room not found")

	// ErrSessionNotFound is returned when a session ID is not bound to
	// any room.
	ErrSessionNotFound = errors.New("room: session not found")

	// ErrManagerClosed is returned when an operation is attempted after
	// Shutdown.
	ErrManagerClosed = errors.New("room: manager closed")
)
