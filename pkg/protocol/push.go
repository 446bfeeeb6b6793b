package protocol

import (
	"encoding/json"

	"github.com/lernhub/boardsync/pkg/store"
)

// connectMsg is the push variant's initial response. The client wipes
// whatever it holds and applies the diff to reach server state.
type connectMsg struct {
	Type         string       `json:"type"`
	ConnectEvent connectEvent `json:"connectEvent"`
}

type connectEvent struct {
	HydrationType string        `json:"hydrationType"`
	Schema        connectSchema `json:"schema"`
	Diff          connectDiff   `json:"diff"`
	ServerClock   uint64        `json:"serverClock"`
}

type connectSchema struct {
	RecordTypes []store.TypeName `json:"recordTypes"`
}

// connectDiff always serializes all three sections, even when empty,
// so a wipe_all hydration for a fresh room reads {added:{}, updated:{},
// removed:[]} on the wire.
type connectDiff struct {
	Added   map[string]*store.Record  `json:"added"`
	Updated map[string]map[string]any `json:"updated"`
	Removed []string                  `json:"removed"`
}

// patchMsg carries one applied diff to every participant but the sender.
type patchMsg struct {
	Type        string      `json:"type"`
	Diff        *store.Diff `json:"diff"`
	ServerClock uint64      `json:"serverClock"`
}

// pushResultMsg acknowledges the sender's own push.
type pushResultMsg struct {
	Type        string `json:"type"`
	Action      string `json:"action"`
	ServerClock uint64 `json:"serverClock"`
}

// EncodeConnect builds the push variant's hydration message. The full
// record set rides in the diff's added section under a wipe_all, so a
// fresh room hydrates as an empty diff at serverClock 0.
func EncodeConnect(records []*store.Record, clock uint64) []byte {
	added := make(map[string]*store.Record, len(records))
	for _, rec := range records {
		added[rec.ID] = rec
	}
	data, _ := json.Marshal(connectMsg{
		Type: TypeConnect,
		ConnectEvent: connectEvent{
			HydrationType: "wipe_all",
			Schema: connectSchema{
				RecordTypes: []store.TypeName{
					store.TypeShape, store.TypeBinding, store.TypeAsset,
					store.TypePage, store.TypeDocument, store.TypeInstance,
				},
			},
			Diff: connectDiff{
				Added:   added,
				Updated: map[string]map[string]any{},
				Removed: []string{},
			},
			ServerClock: clock,
		},
	})
	return data
}

// EncodePatch builds the push variant's fan-out message for one
// applied diff. The original diff is forwarded verbatim.
func EncodePatch(applied *store.Applied) []byte {
	data, _ := json.Marshal(patchMsg{
		Type:        TypePatch,
		Diff:        applied.Diff,
		ServerClock: applied.Clock,
	})
	return data
}

// EncodePushResult builds the commit acknowledgement returned to the
// session whose push was applied.
func EncodePushResult(serverClock uint64) []byte {
	data, _ := json.Marshal(pushResultMsg{
		Type:        TypePushResult,
		Action:      "commit",
		ServerClock: serverClock,
	})
	return data
}
