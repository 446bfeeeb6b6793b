package store

// RoomState is the authoritative record set for one room, bucketed by
// record type, together with the room clock.
//
// RoomState is not safe for concurrent use. The room that owns it must
// serialize every call; see the room package.
type RoomState struct {
	buckets map[TypeName]map[string]*Record
	clock   uint64
}

// NewRoomState returns an empty state with clock 0.
func NewRoomState() *RoomState {
	buckets := make(map[TypeName]map[string]*Record, len(typeNames))
	for _, t := range typeNames {
		buckets[t] = make(map[string]*Record)
	}
	return &RoomState{buckets: buckets}
}

// Clock returns the number of diffs applied so far.
func (s *RoomState) Clock() uint64 {
	return s.clock
}

// Len returns the total number of records across all buckets.
func (s *RoomState) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// Get returns the record with the given id, searching every bucket.
func (s *RoomState) Get(id string) (*Record, bool) {
	for _, t := range typeNames {
		if rec, ok := s.buckets[t][id]; ok {
			return rec, true
		}
	}
	return nil, false
}

// Snapshot returns a flattened copy of every record plus the clock,
// both captured at a single point. Records are cloned so the caller
// may hold the result after the owning room's lock is released.
func (s *RoomState) Snapshot() ([]*Record, uint64) {
	records := make([]*Record, 0, s.Len())
	for _, t := range typeNames {
		for _, rec := range s.buckets[t] {
			records = append(records, rec.Clone())
		}
	}
	return records, s.clock
}

// remove deletes id from whichever bucket currently holds it and
// reports whether anything was deleted.
func (s *RoomState) remove(id string) bool {
	for _, t := range typeNames {
		if _, ok := s.buckets[t][id]; ok {
			delete(s.buckets[t], id)
			return true
		}
	}
	return false
}

// put inserts rec into the bucket matching its type, evicting any
// record with the same id from another bucket first so an id is never
// present in two buckets at once.
func (s *RoomState) put(rec *Record) {
	if existing, ok := s.Get(rec.ID); ok && existing.TypeName != rec.TypeName {
		delete(s.buckets[existing.TypeName], rec.ID)
	}
	s.buckets[rec.TypeName][rec.ID] = rec
}
