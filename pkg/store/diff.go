package store

import (
	"errors"
	"fmt"
)

// ErrInvalidDiff is returned when a diff fails structural validation.
// The room state is left untouched in that case.
var ErrInvalidDiff = errors.New("store: invalid diff")

// Diff is one incremental change set submitted by a client.
// Any of the three sections may be empty.
type Diff struct {
	Added   map[string]*Record        `json:"added,omitempty"`
	Updated map[string]map[string]any `json:"updated,omitempty"`
	Removed []string                  `json:"removed,omitempty"`
}

// Empty reports whether the diff contains no operations at all.
func (d *Diff) Empty() bool {
	return d == nil || (len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0)
}

// Validate checks the diff's structure without touching any state.
// A structurally invalid diff must be rejected before mutation so the
// clock and buckets stay consistent.
func (d *Diff) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: diff is null", ErrInvalidDiff)
	}
	for key, rec := range d.Added {
		if err := rec.validate(key); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDiff, err)
		}
	}
	for id, fields := range d.Updated {
		if id == "" {
			return fmt.Errorf("%w: updated entry has empty id", ErrInvalidDiff)
		}
		if fields == nil {
			return fmt.Errorf("%w: updated entry %q has null fields", ErrInvalidDiff, id)
		}
	}
	for i, id := range d.Removed {
		if id == "" {
			return fmt.Errorf("%w: removed entry %d has empty id", ErrInvalidDiff, i)
		}
	}
	return nil
}

// Applied describes the outcome of one successfully applied diff.
// Records holds post-merge clones of every record the diff added or
// updated, RemovedIDs echoes the diff's removal list, and Clock is the
// room clock after the tick.
type Applied struct {
	Diff       *Diff
	Records    []*Record
	RemovedIDs []string
	Clock      uint64

	// DroppedUpdates counts updated entries that referenced a record
	// no longer present. An update racing an earlier delete is
	// expected, not an error.
	DroppedUpdates int
}

// Apply mutates the state according to diff and advances the clock by
// exactly one, regardless of how many entries the diff carried.
//
// Order of operations: added (upsert), updated (single-level merge,
// silently dropped when the id is gone), removed (idempotent delete).
// On validation failure nothing is mutated and the clock keeps its
// previous value.
func (s *RoomState) Apply(diff *Diff) (*Applied, error) {
	if err := diff.Validate(); err != nil {
		return nil, err
	}

	applied := &Applied{Diff: diff}

	for _, rec := range diff.Added {
		s.put(rec.Clone())
	}

	for id, fields := range diff.Updated {
		rec, ok := s.Get(id)
		if !ok {
			applied.DroppedUpdates++
			continue
		}
		if rec.Payload == nil {
			rec.Payload = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			rec.Payload[k] = v
		}
	}

	// Collect post-merge views of every record the diff touched.
	for id := range diff.Added {
		if rec, ok := s.Get(id); ok {
			applied.Records = append(applied.Records, rec.Clone())
		}
	}
	for id := range diff.Updated {
		if _, inAdded := diff.Added[id]; inAdded {
			continue
		}
		if rec, ok := s.Get(id); ok {
			applied.Records = append(applied.Records, rec.Clone())
		}
	}

	for _, id := range diff.Removed {
		s.remove(id)
	}
	applied.RemovedIDs = append(applied.RemovedIDs, diff.Removed...)

	s.clock++
	applied.Clock = s.clock
	return applied, nil
}
