package room

import (
	"sort"
	"sync"
	"time"

	"github.com/lernhub/boardsync/pkg/protocol"
	"github.com/lernhub/boardsync/pkg/store"
)

// Peer is one participant's outbound half. Send must not block:
// implementations queue the payload or drop it and return an error. A
// failed send never affects delivery to other peers.
type Peer interface {
	// Variant reports which wire format the peer speaks.
	Variant() protocol.Variant

	// Send queues an encoded message for delivery.
	Send(data []byte) error
}

// Room is one isolated collaboration session: its record state, its
// participants, and its activity bookkeeping.
//
// All fields below the mutex are guarded by it. Join, Leave, and diff
// application for one room are serialized through this mutex; separate
// rooms share nothing and proceed concurrently.
type Room struct {
	ID string

	mu           sync.Mutex
	state        *store.RoomState
	participants map[string]Peer
	createdAt    time.Time
	lastActivity time.Time
	evicted      bool
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		ID:           id,
		state:        store.NewRoomState(),
		participants: make(map[string]Peer),
		createdAt:    now,
		lastActivity: now,
	}
}

// Snapshot is the hydration payload handed to a joining session:
// records and clock captured at one serialized instant, plus the
// participant list including the joiner itself.
type Snapshot struct {
	RoomID       string
	Records      []*store.Record
	Clock        uint64
	Participants []string
}

// participantIDsLocked returns a sorted participant list. Callers hold r.mu.
func (r *Room) participantIDsLocked() []string {
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// broadcastLocked fans data out to every participant except exclude.
// Callers hold r.mu; Peer.Send is non-blocking so no network wait
// happens under the lock. Encoding is done once per wire variant
// present in the room, via encode.
func (r *Room) broadcastLocked(exclude string, encode func(protocol.Variant) []byte, onDrop func(sessionID string)) int {
	var byVariant [2][]byte
	sent := 0
	for id, peer := range r.participants {
		if id == exclude {
			continue
		}
		v := peer.Variant()
		if byVariant[v] == nil {
			byVariant[v] = encode(v)
		}
		if err := peer.Send(byVariant[v]); err != nil {
			if onDrop != nil {
				onDrop(id)
			}
			continue
		}
		sent++
	}
	return sent
}
