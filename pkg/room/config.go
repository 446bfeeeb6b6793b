package room

import "time"

// Config holds room manager configuration.
type Config struct {
	// SweepInterval is how often the idle reaper scans for empty rooms.
	// Default: 1 minute.
	SweepInterval time.Duration

	// IdleThreshold is how long an empty room may sit without activity
	// before the reaper deletes it. Default: 5 minutes.
	IdleThreshold time.Duration

	// Hooks receive lifecycle notifications. All fields are optional.
	Hooks Hooks
}

// Hooks are optional callbacks fired on room lifecycle events. They
// are invoked from manager goroutines and must not block.
type Hooks struct {
	// OnRoomCreate fires when a room is created on first join.
	OnRoomCreate func(roomID string)

	// OnRoomReap fires when the idle reaper deletes an empty room.
	OnRoomReap func(roomID string)

	// OnDiffApplied fires after a diff is applied to a room.
	OnDiffApplied func(roomID string)

	// OnBroadcastDrop fires when a fan-out send to one participant
	// fails or is dropped. Delivery to the others continues.
	OnBroadcastDrop func(roomID, sessionID string)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SweepInterval: 1 * time.Minute,
		IdleThreshold: 5 * time.Minute,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
