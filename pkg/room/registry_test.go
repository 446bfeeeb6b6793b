package room

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistryBindLookup(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup("alice"); ok {
		t.Error("lookup on empty registry should miss")
	}

	r.Bind("alice", "r1")
	roomID, ok := r.Lookup("alice")
	if !ok || roomID != "r1" {
		t.Errorf("Lookup = (%q, %v), want (r1, true)", roomID, ok)
	}

	// Rebinding moves the session, it does not duplicate it.
	r.Bind("alice", "r2")
	if roomID, _ := r.Lookup("alice"); roomID != "r2" {
		t.Errorf("Lookup after rebind = %q, want r2", roomID)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryUnbindExactlyOnce(t *testing.T) {
	r := NewRegistry()
	r.Bind("alice", "r1")

	roomID, ok := r.Unbind("alice")
	if !ok || roomID != "r1" {
		t.Errorf("Unbind = (%q, %v), want (r1, true)", roomID, ok)
	}
	if _, ok := r.Unbind("alice"); ok {
		t.Error("second unbind must report a miss")
	}
	if _, ok := r.Unbind("ghost"); ok {
		t.Error("unbind of unknown session must report a miss")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			r.Bind(id, "r1")
			r.Lookup(id)
			r.Unbind(id)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}
