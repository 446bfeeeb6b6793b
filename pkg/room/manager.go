package room

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lernhub/boardsync/pkg/protocol"
	"github.com/lernhub/boardsync/pkg/store"
)

// Manager is the single authority over room existence, membership, and
// per-room serialized state mutation. It owns the roomID -> Room map,
// the session registry, and the idle reaper goroutine.
type Manager struct {
	// Rooms map protected by RWMutex. Per-room internals are guarded
	// separately by each Room's own mutex.
	rooms map[string]*Room
	mu    sync.RWMutex

	registry *Registry
	config   *Config
	logger   *slog.Logger

	// Reaper lifecycle
	done       chan struct{}
	reaperDone chan struct{}
	closeOnce  sync.Once

	// Counters
	roomsCreated      atomic.Uint64
	roomsReaped       atomic.Uint64
	diffsApplied      atomic.Uint64
	broadcastsSent    atomic.Uint64
	broadcastsDropped atomic.Uint64
}

// NewManager creates a Manager and starts its idle reaper.
func NewManager(config *Config, logger *slog.Logger) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}
	if config.IdleThreshold <= 0 {
		config.IdleThreshold = DefaultConfig().IdleThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		rooms:      make(map[string]*Room),
		registry:   NewRegistry(),
		config:     config,
		logger:     logger.With("component", "room_manager"),
		done:       make(chan struct{}),
		reaperDone: make(chan struct{}),
	}

	go m.reapLoop()

	return m
}

// GetOrCreate returns the room for roomID, creating it with empty
// state and clock 0 when absent. Concurrent first joins for the same
// roomID observe the same Room: only one creation wins under the map
// lock.
func (m *Manager) GetOrCreate(roomID string) *Room {
	m.mu.RLock()
	r := m.rooms[roomID]
	m.mu.RUnlock()
	if r != nil {
		return r
	}

	m.mu.Lock()
	if r = m.rooms[roomID]; r == nil {
		r = newRoom(roomID, time.Now())
		m.rooms[roomID] = r
		m.roomsCreated.Add(1)
		m.mu.Unlock()

		m.logger.Info("room created", "room_id", roomID)
		if m.config.Hooks.OnRoomCreate != nil {
			m.config.Hooks.OnRoomCreate(roomID)
		}
		return r
	}
	m.mu.Unlock()
	return r
}

// get returns the room for roomID or nil.
func (m *Manager) get(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// Join registers the session as a participant of roomID, queues the
// hydration message to the joining peer, and returns the snapshot it
// was built from. Snapshot capture, hydration queueing, and entry into
// the broadcast recipient set happen atomically under the room's
// serialization: no diff applied after the snapshot can be missed by
// the joiner, and none applied before it can be replayed to them.
//
// Joining twice with the same session ID replaces the peer handle
// without duplicating the participant entry. The user-joined event
// goes to every other current participant, never to the joiner.
func (m *Manager) Join(roomID, sessionID string, peer Peer) *Snapshot {
	for {
		r := m.GetOrCreate(roomID)

		r.mu.Lock()
		if r.evicted {
			// Lost a race with the reaper between map lookup and room
			// lock. The room is gone from the map, start over.
			r.mu.Unlock()
			continue
		}

		now := time.Now()
		_, rejoin := r.participants[sessionID]
		r.participants[sessionID] = peer
		r.lastActivity = now

		records, clock := r.state.Snapshot()
		snap := &Snapshot{
			RoomID:       roomID,
			Records:      records,
			Clock:        clock,
			Participants: r.participantIDsLocked(),
		}

		// Hydration is queued to the joiner here, under the room lock,
		// so the snapshot and the joiner's entry into the broadcast
		// recipient set are one atomic step: every diff applied after
		// this instant reaches the joiner as a later queue entry, and
		// none applied before it is replayed.
		var hydration []byte
		if peer.Variant() == protocol.VariantPush {
			hydration = protocol.EncodeConnect(records, clock)
		} else {
			hydration = protocol.EncodeRoomState(roomID, records, clock, snap.Participants, now)
		}
		if err := peer.Send(hydration); err != nil {
			m.onDrop(roomID, sessionID)
		}

		if !rejoin {
			joined := protocol.EncodePresence(protocol.TypeUserJoined, sessionID, now)
			sent := r.broadcastLocked(sessionID, func(protocol.Variant) []byte { return joined }, func(id string) {
				m.onDrop(roomID, id)
			})
			m.broadcastsSent.Add(uint64(sent))
		}
		r.mu.Unlock()

		m.registry.Bind(sessionID, roomID)

		m.logger.Info("session joined",
			"room_id", roomID,
			"session_id", sessionID,
			"participants", len(snap.Participants),
			"clock", snap.Clock)

		return snap
	}
}

// Leave detaches the session from whatever room it is bound to,
// broadcasts user-left to the remaining participants, and leaves an
// emptied room in place for the idle reaper. Calling Leave again for
// the same session, or after the room was reaped, is a no-op.
//
// peer identifies which connection is leaving. A session ID can be
// reused across a reconnect, and the old socket's close may land after
// the replacement has already joined; when peer is non-nil and no
// longer the registered participant, the call is a stale close and
// changes nothing. A nil peer detaches the session unconditionally.
func (m *Manager) Leave(sessionID string, peer Peer) {
	roomID, ok := m.registry.Lookup(sessionID)
	if !ok {
		return
	}

	r := m.get(roomID)
	if r == nil {
		// Room already reaped; nothing left to clean.
		return
	}

	r.mu.Lock()
	current, ok := r.participants[sessionID]
	if !ok || (peer != nil && current != peer) {
		r.mu.Unlock()
		return
	}
	delete(r.participants, sessionID)
	now := time.Now()
	r.lastActivity = now
	remaining := len(r.participants)

	left := protocol.EncodePresence(protocol.TypeUserLeft, sessionID, now)
	sent := r.broadcastLocked(sessionID, func(protocol.Variant) []byte { return left }, func(id string) {
		m.onDrop(roomID, id)
	})
	m.broadcastsSent.Add(uint64(sent))
	r.mu.Unlock()

	m.registry.Unbind(sessionID)

	m.logger.Info("session left",
		"room_id", roomID,
		"session_id", sessionID,
		"remaining", remaining)
}

// ApplyAndBroadcast applies the diff to the room under its serialized
// mutation path, then fans the result out to every participant except
// the sender. The returned Applied carries the post-tick clock for the
// sender's acknowledgement.
//
// A missing room (session already left, racing close) yields
// ErrRoomNotFound and is logged as a warning, not treated as fatal.
// An invalid diff leaves the room untouched and is surfaced only to
// the caller.
func (m *Manager) ApplyAndBroadcast(roomID, sessionID string, diff *store.Diff) (*store.Applied, error) {
	r := m.get(roomID)
	if r == nil {
		m.logger.Warn("diff for unknown room dropped",
			"room_id", roomID,
			"session_id", sessionID)
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	applied, err := r.state.Apply(diff)
	if err != nil {
		r.mu.Unlock()
		m.logger.Warn("diff rejected",
			"room_id", roomID,
			"session_id", sessionID,
			"error", err)
		return nil, err
	}
	now := time.Now()
	r.lastActivity = now

	sent := r.broadcastLocked(sessionID, func(v protocol.Variant) []byte {
		if v == protocol.VariantPush {
			return protocol.EncodePatch(applied)
		}
		return protocol.EncodeDocumentUpdate(sessionID, applied, now)
	}, func(id string) {
		m.onDrop(roomID, id)
	})
	r.mu.Unlock()

	m.diffsApplied.Add(1)
	m.broadcastsSent.Add(uint64(sent))
	if m.config.Hooks.OnDiffApplied != nil {
		m.config.Hooks.OnDiffApplied(roomID)
	}

	if applied.DroppedUpdates > 0 {
		m.logger.Debug("updates for missing records dropped",
			"room_id", roomID,
			"session_id", sessionID,
			"count", applied.DroppedUpdates)
	}

	return applied, nil
}

func (m *Manager) onDrop(roomID, sessionID string) {
	m.broadcastsDropped.Add(1)
	m.logger.Warn("broadcast to participant dropped",
		"room_id", roomID,
		"session_id", sessionID)
	if m.config.Hooks.OnBroadcastDrop != nil {
		m.config.Hooks.OnBroadcastDrop(roomID, sessionID)
	}
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// SessionCount returns the number of bound sessions across all rooms.
func (m *Manager) SessionCount() int {
	return m.registry.Len()
}

// Stats is a point-in-time view of manager counters.
type Stats struct {
	Rooms             int    `json:"rooms"`
	Sessions          int    `json:"sessions"`
	RoomsCreated      uint64 `json:"roomsCreated"`
	RoomsReaped       uint64 `json:"roomsReaped"`
	DiffsApplied      uint64 `json:"diffsApplied"`
	BroadcastsSent    uint64 `json:"broadcastsSent"`
	BroadcastsDropped uint64 `json:"broadcastsDropped"`
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Rooms:             m.RoomCount(),
		Sessions:          m.SessionCount(),
		RoomsCreated:      m.roomsCreated.Load(),
		RoomsReaped:       m.roomsReaped.Load(),
		DiffsApplied:      m.diffsApplied.Load(),
		BroadcastsSent:    m.broadcastsSent.Load(),
		BroadcastsDropped: m.broadcastsDropped.Load(),
	}
}

// Shutdown stops the idle reaper and waits for it to exit. Rooms are
// not torn down individually; whiteboard state is in-memory and dies
// with the process.
func (m *Manager) Shutdown() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	<-m.reaperDone
}
