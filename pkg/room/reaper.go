package room

import "time"

// reapLoop periodically sweeps for empty, idle rooms. It runs until
// Shutdown closes the done channel.
func (m *Manager) reapLoop() {
	defer close(m.reaperDone)

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reap(time.Now())
		case <-m.done:
			return
		}
	}
}

// reap deletes every room that has zero participants and whose last
// activity is older than the idle threshold at sweep time. A room with
// at least one participant is never deleted, regardless of age, since
// its state must stay queryable by current members.
func (m *Manager) reap(now time.Time) int {
	m.mu.Lock()

	var expired []*Room
	for id, r := range m.rooms {
		r.mu.Lock()
		idle := len(r.participants) == 0 && now.Sub(r.lastActivity) > m.config.IdleThreshold
		if idle {
			// Marking under the room lock closes the race with a join
			// that already fetched this Room from the map: the joiner
			// sees evicted and retries against a fresh room.
			r.evicted = true
			delete(m.rooms, id)
			expired = append(expired, r)
		}
		r.mu.Unlock()
	}
	m.mu.Unlock()

	for _, r := range expired {
		m.roomsReaped.Add(1)
		m.logger.Info("idle room reaped",
			"room_id", r.ID,
			"idle", now.Sub(r.lastActivity).Round(time.Second))
		if m.config.Hooks.OnRoomReap != nil {
			m.config.Hooks.OnRoomReap(r.ID)
		}
	}

	return len(expired)
}
