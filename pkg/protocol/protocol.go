// Package protocol defines the JSON wire formats spoken over the room
// sync WebSocket.
//
// Two variants coexist: the simple document-update scheme and the
// push/patch scheme. Both map onto the same core engine; the variant
// only changes how messages are shaped on the wire. A connection picks
// its variant at connect time and keeps it for its lifetime.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lernhub/boardsync/pkg/store"
)

// Variant selects which wire format a connection speaks.
type Variant int

const (
	// VariantSimple is the document-update / room-state scheme.
	VariantSimple Variant = iota

	// VariantPush is the push / patch / push_result scheme.
	VariantPush
)

// String returns the query-parameter name of the variant.
func (v Variant) String() string {
	if v == VariantPush {
		return "push"
	}
	return "simple"
}

// ParseVariant maps the `protocol` query parameter to a Variant.
// Unknown or empty values fall back to the simple variant.
func ParseVariant(s string) Variant {
	if s == "push" {
		return VariantPush
	}
	return VariantSimple
}

// Message type discriminators.
const (
	TypeDocumentUpdate = "document-update"
	TypeRoomState      = "room-state"
	TypePush           = "push"
	TypePatch          = "patch"
	TypePushResult     = "push_result"
	TypeConnect        = "connect"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeUserJoined     = "user-joined"
	TypeUserLeft       = "user-left"
)

// Inbound is a decoded client message, normalized across variants.
// For diff-carrying messages Diff holds the change set; other fields
// are populated as the variant supplies them.
type Inbound struct {
	Type      string
	RoomID    string
	SessionID string
	Diff      *store.Diff
}

// rawInbound covers the union of both variants' inbound fields.
type rawInbound struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"roomId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Clock     uint64      `json:"clock,omitempty"`
	Update    *store.Diff `json:"update,omitempty"`
	Diff      *store.Diff `json:"diff,omitempty"`
}

// ParseInbound decodes one client message. The type discriminator is
// required; diff-carrying types must include their diff section.
func ParseInbound(data []byte) (*Inbound, error) {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("protocol: malformed message: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("protocol: message has no type")
	}

	in := &Inbound{
		Type:      raw.Type,
		RoomID:    raw.RoomID,
		SessionID: raw.SessionID,
	}

	switch raw.Type {
	case TypeDocumentUpdate:
		if raw.Update == nil {
			return nil, fmt.Errorf("protocol: document-update without update section")
		}
		in.Diff = raw.Update
	case TypePush:
		if raw.Diff == nil {
			return nil, fmt.Errorf("protocol: push without diff section")
		}
		in.Diff = raw.Diff
	}

	return in, nil
}

// Timestamp renders t the way every outbound message carries time:
// milliseconds since the Unix epoch.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// EncodePong builds the reply to an inbound ping. Pongs go to the
// sender only and are identical across variants.
func EncodePong(now time.Time) []byte {
	data, _ := json.Marshal(struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
	}{TypePong, Timestamp(now)})
	return data
}

// EncodePresence builds a user-joined or user-left event. Presence
// events share one shape across variants.
func EncodePresence(msgType, sessionID string, now time.Time) []byte {
	data, _ := json.Marshal(struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
		Timestamp int64  `json:"timestamp"`
	}{msgType, sessionID, Timestamp(now)})
	return data
}
