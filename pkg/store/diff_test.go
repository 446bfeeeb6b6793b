package store

import (
	"errors"
	"fmt"
	"testing"
)

func shape(id string, fields map[string]any) *Record {
	return &Record{ID: id, TypeName: TypeShape, Payload: fields}
}

func TestApplyAddedInsertsIntoMatchingBucket(t *testing.T) {
	s := NewRoomState()

	applied, err := s.Apply(&Diff{Added: map[string]*Record{
		"s1": shape("s1", map[string]any{"x": 1.0}),
	}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Clock != 1 {
		t.Errorf("Clock = %d, want 1", applied.Clock)
	}

	rec, ok := s.Get("s1")
	if !ok {
		t.Fatal("record s1 not found after add")
	}
	if rec.TypeName != TypeShape {
		t.Errorf("TypeName = %q, want shape", rec.TypeName)
	}
	if rec.Payload["x"] != 1.0 {
		t.Errorf("Payload[x] = %v, want 1", rec.Payload["x"])
	}
}

func TestApplyAddedActsAsUpsert(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{Added: map[string]*Record{
		"s1": shape("s1", map[string]any{"x": 1.0, "y": 2.0}),
	}})
	mustApply(t, s, &Diff{Added: map[string]*Record{
		"s1": shape("s1", map[string]any{"x": 9.0}),
	}})

	rec, _ := s.Get("s1")
	if rec.Payload["x"] != 9.0 {
		t.Errorf("Payload[x] = %v, want 9", rec.Payload["x"])
	}
	if _, ok := rec.Payload["y"]; ok {
		t.Error("upsert should replace the whole record, y should be gone")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestApplyAddedEvictsIDFromOtherBucket(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{Added: map[string]*Record{
		"r1": {ID: "r1", TypeName: TypePage},
	}})
	mustApply(t, s, &Diff{Added: map[string]*Record{
		"r1": {ID: "r1", TypeName: TypeShape},
	}})

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (id must live in a single bucket)", s.Len())
	}
	rec, _ := s.Get("r1")
	if rec.TypeName != TypeShape {
		t.Errorf("TypeName = %q, want shape", rec.TypeName)
	}
}

func TestApplyUpdatedShallowMerge(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{Added: map[string]*Record{
		"s1": shape("s1", map[string]any{"x": 1.0, "color": "red"}),
	}})
	mustApply(t, s, &Diff{Updated: map[string]map[string]any{
		"s1": {"x": 5.0},
	}})

	rec, _ := s.Get("s1")
	if rec.Payload["x"] != 5.0 {
		t.Errorf("Payload[x] = %v, want 5", rec.Payload["x"])
	}
	if rec.Payload["color"] != "red" {
		t.Errorf("Payload[color] = %v, want red (untouched fields survive)", rec.Payload["color"])
	}
}

func TestApplyUpdatedMissingRecordDropped(t *testing.T) {
	s := NewRoomState()

	applied, err := s.Apply(&Diff{Updated: map[string]map[string]any{
		"ghost": {"x": 1.0},
	}})
	if err != nil {
		t.Fatalf("update for missing record must not error: %v", err)
	}
	if applied.DroppedUpdates != 1 {
		t.Errorf("DroppedUpdates = %d, want 1", applied.DroppedUpdates)
	}
	if applied.Clock != 1 {
		t.Errorf("Clock = %d, want 1 (clock still ticks)", applied.Clock)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestApplyRemovedIsIdempotent(t *testing.T) {
	s := NewRoomState()

	applied, err := s.Apply(&Diff{Removed: []string{"nope"}})
	if err != nil {
		t.Fatalf("remove of nonexistent id must not error: %v", err)
	}
	if applied.Clock != 1 {
		t.Errorf("Clock = %d, want 1", applied.Clock)
	}
}

func TestApplyRemoveThenReAdd(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{Added: map[string]*Record{"s1": shape("s1", nil)}})
	mustApply(t, s, &Diff{Removed: []string{"s1"}})
	if _, ok := s.Get("s1"); ok {
		t.Fatal("s1 should be gone after remove")
	}
	mustApply(t, s, &Diff{Added: map[string]*Record{"s1": shape("s1", nil)}})

	if _, ok := s.Get("s1"); !ok {
		t.Error("s1 should exist after re-add")
	}
	if s.Clock() != 3 {
		t.Errorf("Clock = %d, want 3", s.Clock())
	}
}

func TestApplyRemoveWinsWithinOneDiff(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{
		Added:   map[string]*Record{"s1": shape("s1", nil)},
		Removed: []string{"s1"},
	})

	if _, ok := s.Get("s1"); ok {
		t.Error("remove listed in the same diff must take effect")
	}
}

func TestApplyClockTicksOncePerDiff(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{
		Added: map[string]*Record{
			"a": shape("a", nil),
			"b": shape("b", nil),
		},
		Removed: []string{"c", "d"},
	})
	if s.Clock() != 1 {
		t.Errorf("Clock = %d, want 1 (one tick per diff, not per entry)", s.Clock())
	}

	for i := 0; i < 9; i++ {
		mustApply(t, s, &Diff{Removed: []string{"x"}})
	}
	if s.Clock() != 10 {
		t.Errorf("Clock = %d after 10 diffs, want 10", s.Clock())
	}
}

func TestApplyInvalidDiffLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name string
		diff *Diff
	}{
		{"nil diff", nil},
		{"nil added record", &Diff{Added: map[string]*Record{"s1": nil}}},
		{"empty id", &Diff{Added: map[string]*Record{"": {ID: "", TypeName: TypeShape}}}},
		{"key id mismatch", &Diff{Added: map[string]*Record{"s1": {ID: "s2", TypeName: TypeShape}}}},
		{"unknown type", &Diff{Added: map[string]*Record{"s1": {ID: "s1", TypeName: "blob"}}}},
		{"empty updated id", &Diff{Updated: map[string]map[string]any{"": {"x": 1}}}},
		{"nil updated fields", &Diff{Updated: map[string]map[string]any{"s1": nil}}},
		{"empty removed id", &Diff{Removed: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRoomState()
			mustApply(t, s, &Diff{Added: map[string]*Record{"keep": shape("keep", nil)}})

			if _, err := s.Apply(tt.diff); !errors.Is(err, ErrInvalidDiff) {
				t.Fatalf("Apply = %v, want ErrInvalidDiff", err)
			}
			if s.Clock() != 1 {
				t.Errorf("Clock = %d, want 1 (rejected diff must not tick)", s.Clock())
			}
			if s.Len() != 1 {
				t.Errorf("Len = %d, want 1 (rejected diff must not mutate)", s.Len())
			}
		})
	}
}

func TestApplyRecordsCarryPostMergeView(t *testing.T) {
	s := NewRoomState()

	mustApply(t, s, &Diff{Added: map[string]*Record{
		"s1": shape("s1", map[string]any{"x": 1.0, "color": "red"}),
	}})

	applied := mustApply(t, s, &Diff{Updated: map[string]map[string]any{
		"s1": {"x": 2.0},
	}})
	if len(applied.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(applied.Records))
	}
	rec := applied.Records[0]
	if rec.Payload["x"] != 2.0 || rec.Payload["color"] != "red" {
		t.Errorf("broadcast record = %v, want merged fields", rec.Payload)
	}

	// Mutating the broadcast copy must not reach authoritative state.
	rec.Payload["x"] = 99.0
	stored, _ := s.Get("s1")
	if stored.Payload["x"] != 2.0 {
		t.Error("broadcast record aliases authoritative payload")
	}
}

func TestApplyClockEqualsAppliedDiffCount(t *testing.T) {
	s := NewRoomState()
	const n = 100

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%d", i)
		mustApply(t, s, &Diff{Added: map[string]*Record{id: shape(id, nil)}})
	}
	if s.Clock() != n {
		t.Errorf("Clock = %d after %d diffs, want %d", s.Clock(), n, n)
	}
	if s.Len() != n {
		t.Errorf("Len = %d, want %d", s.Len(), n)
	}
}

func mustApply(t *testing.T, s *RoomState, d *Diff) *Applied {
	t.Helper()
	applied, err := s.Apply(d)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return applied
}
