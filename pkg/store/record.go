package store

import "fmt"

// TypeName identifies the kind of document entity a record holds.
// The engine treats record payloads as opaque; the type only selects
// the bucket a record lives in.
type TypeName string

// Record types recognized by the engine.
const (
	TypeShape    TypeName = "shape"
	TypeBinding  TypeName = "binding"
	TypeAsset    TypeName = "asset"
	TypePage     TypeName = "page"
	TypeDocument TypeName = "document"
	TypeInstance TypeName = "instance"
)

// typeNames lists every valid TypeName in bucket iteration order.
var typeNames = []TypeName{
	TypeShape,
	TypeBinding,
	TypeAsset,
	TypePage,
	TypeDocument,
	TypeInstance,
}

// Valid reports whether t is one of the recognized record types.
func (t TypeName) Valid() bool {
	switch t {
	case TypeShape, TypeBinding, TypeAsset, TypePage, TypeDocument, TypeInstance:
		return true
	}
	return false
}

// Record is one addressable document entity within a room's state.
// Payload carries client-defined fields; the engine never inspects
// them beyond field-level merging.
type Record struct {
	ID       string         `json:"id"`
	TypeName TypeName       `json:"typeName"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Clone returns a copy of the record with its own top-level payload map.
// Nested payload values are shared; the engine only ever replaces
// top-level fields, never mutates nested structures.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := &Record{ID: r.ID, TypeName: r.TypeName}
	if r.Payload != nil {
		clone.Payload = make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			clone.Payload[k] = v
		}
	}
	return clone
}

// validate checks the structural invariants required before a record
// may enter a room state.
func (r *Record) validate(key string) error {
	if r == nil {
		return fmt.Errorf("store: added record %q is null", key)
	}
	if r.ID == "" {
		return fmt.Errorf("store: added record %q has no id", key)
	}
	if r.ID != key {
		return fmt.Errorf("store: added record key %q does not match id %q", key, r.ID)
	}
	if !r.TypeName.Valid() {
		return fmt.Errorf("store: added record %q has unknown type %q", key, r.TypeName)
	}
	return nil
}
