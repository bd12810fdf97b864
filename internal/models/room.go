package models

import "time"

// Room is the durable record behind a conversation room. The live participant
// set is owned by the registry; this record only carries identity, the short
// join code, and creation time. Empty rooms expire by TTL in the room store.
type Room struct {
	RoomID    string    `json:"room_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
