package room

import (
	"testing"
	"time"
)

func TestReapDeletesEmptyIdleRoom(t *testing.T) {
	m := newTestManager(t)

	m.Join("r1", "alice", &fakePeer{})
	m.Leave("alice", nil)

	now := time.Now()
	if n := m.reap(now); n != 0 {
		t.Errorf("reap before threshold = %d, want 0", n)
	}
	if n := m.reap(now.Add(10 * time.Minute)); n != 1 {
		t.Errorf("reap past threshold = %d, want 1", n)
	}
	if m.RoomCount() != 0 {
		t.Errorf("RoomCount = %d, want 0", m.RoomCount())
	}
	if m.Stats().RoomsReaped != 1 {
		t.Errorf("RoomsReaped = %d, want 1", m.Stats().RoomsReaped)
	}
}

func TestReapNeverDeletesOccupiedRoom(t *testing.T) {
	m := newTestManager(t)

	m.Join("r1", "alice", &fakePeer{})
	if n := m.reap(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("reap = %d, want 0 for occupied room", n)
	}
	if m.RoomCount() != 1 {
		t.Errorf("RoomCount = %d, want 1", m.RoomCount())
	}
}

func TestReapSparesRejoinedRoom(t *testing.T) {
	m := newTestManager(t)

	m.Join("r1", "alice", &fakePeer{})
	m.Leave("alice", nil)
	m.Join("r1", "bob", &fakePeer{})

	if n := m.reap(time.Now().Add(10 * time.Minute)); n != 0 {
		t.Errorf("reap = %d, want 0 after rejoin", n)
	}
}

func TestReapOnlySelectsIdleRooms(t *testing.T) {
	m := newTestManager(t)

	now := time.Now()

	// idle: emptied long ago.
	m.Join("idle", "a", &fakePeer{})
	m.Leave("a", nil)
	// busy: still occupied.
	m.Join("busy", "bob", &fakePeer{})
	// fresh: emptied, but keep its activity recent by recreating it at sweep time.
	m.Join("fresh", "c", &fakePeer{})
	m.Leave("c", nil)
	if r := m.get("fresh"); r != nil {
		r.mu.Lock()
		r.lastActivity = now.Add(9 * time.Minute)
		r.mu.Unlock()
	}

	if n := m.reap(now.Add(10 * time.Minute)); n != 1 {
		t.Errorf("reap = %d, want 1", n)
	}
	if m.get("idle") != nil {
		t.Error("idle room should be gone")
	}
	if m.get("busy") == nil || m.get("fresh") == nil {
		t.Error("busy and fresh rooms must survive")
	}
	if _, ok := m.registry.Lookup("bob"); !ok {
		t.Error("registry must keep sessions of surviving rooms")
	}
}

func TestReapLoopRunsOnTicker(t *testing.T) {
	m := NewManager(&Config{SweepInterval: 10 * time.Millisecond, IdleThreshold: time.Millisecond}, testLogger())
	t.Cleanup(m.Shutdown)

	m.Join("r1", "alice", &fakePeer{})
	m.Leave("alice", nil)

	deadline := time.Now().Add(2 * time.Second)
	for m.RoomCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("reaper loop never swept the idle room")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinRacingReaperRetries(t *testing.T) {
	m := newTestManager(t)

	old := m.GetOrCreate("r1")

	// Simulate a sweep that evicted the room between a joiner's lookup
	// and its lock acquisition.
	old.mu.Lock()
	old.evicted = true
	old.mu.Unlock()
	m.mu.Lock()
	delete(m.rooms, "r1")
	m.mu.Unlock()

	snap := m.Join("r1", "alice", &fakePeer{})
	if snap.Clock != 0 {
		t.Errorf("Clock = %d, want fresh room", snap.Clock)
	}
	if m.get("r1") == old {
		t.Error("join must land on a replacement room, not the evicted one")
	}
}
