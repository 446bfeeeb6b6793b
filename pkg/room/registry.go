package room

import "sync"

// Registry tracks which room each live session is attached to. It is
// the cross-room lookup used by Leave, where only the session ID is
// known.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]string // sessionID -> roomID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]string)}
}

// Bind associates a session with a room, replacing any previous
// binding for the same session.
func (r *Registry) Bind(sessionID, roomID string) {
	r.mu.Lock()
	r.rooms[sessionID] = roomID
	r.mu.Unlock()
}

// Lookup returns the room a session is bound to.
func (r *Registry) Lookup(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.rooms[sessionID]
	return roomID, ok
}

// Unbind removes the session's binding and returns the room it was
// attached to. A second Unbind for the same session reports false,
// which is how Leave stays exactly-once under racing close and error
// events.
func (r *Registry) Unbind(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.rooms[sessionID]
	if ok {
		delete(r.rooms, sessionID)
	}
	return roomID, ok
}

// Len returns the number of bound sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
