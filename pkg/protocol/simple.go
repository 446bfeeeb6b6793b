package protocol

import (
	"encoding/json"
	"time"

	"github.com/lernhub/boardsync/pkg/store"
)

// roomStateMsg is the join response of the simple variant.
type roomStateMsg struct {
	Type         string        `json:"type"`
	RoomID       string        `json:"roomId"`
	State        roomStateBody `json:"state"`
	Participants []string      `json:"participants"`
	Timestamp    int64         `json:"timestamp"`
}

type roomStateBody struct {
	Records map[string]*store.Record `json:"records"`
	Clock   uint64                   `json:"clock"`
}

// documentUpdateMsg is the simple variant's broadcast payload.
type documentUpdateMsg struct {
	Type      string             `json:"type"`
	SessionID string             `json:"sessionId"`
	Data      documentUpdateBody `json:"data"`
	Clock     uint64             `json:"clock"`
	Timestamp int64              `json:"timestamp"`
}

type documentUpdateBody struct {
	Records    map[string]*store.Record `json:"records"`
	RemovedIDs []string                 `json:"removedIds"`
}

// EncodeRoomState builds the hydration snapshot sent to a newly joined
// session on the simple variant.
func EncodeRoomState(roomID string, records []*store.Record, clock uint64, participants []string, now time.Time) []byte {
	byID := make(map[string]*store.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	if participants == nil {
		participants = []string{}
	}
	data, _ := json.Marshal(roomStateMsg{
		Type:         TypeRoomState,
		RoomID:       roomID,
		State:        roomStateBody{Records: byID, Clock: clock},
		Participants: participants,
		Timestamp:    Timestamp(now),
	})
	return data
}

// EncodeDocumentUpdate builds the simple variant's fan-out message for
// one applied diff. Receivers upsert Records and delete RemovedIDs to
// converge on the server's state at Clock.
func EncodeDocumentUpdate(sessionID string, applied *store.Applied, now time.Time) []byte {
	byID := make(map[string]*store.Record, len(applied.Records))
	for _, rec := range applied.Records {
		byID[rec.ID] = rec
	}
	removed := applied.RemovedIDs
	if removed == nil {
		removed = []string{}
	}
	data, _ := json.Marshal(documentUpdateMsg{
		Type:      TypeDocumentUpdate,
		SessionID: sessionID,
		Data:      documentUpdateBody{Records: byID, RemovedIDs: removed},
		Clock:     applied.Clock,
		Timestamp: Timestamp(now),
	})
	return data
}
