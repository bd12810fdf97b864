package models

import "time"

// Participant is one user's membership in one room. A user holds at most one
// entry per room; rejoin is idempotent. Present flips to false on disconnect
// rather than removing the entry, so a reconnect resumes the same membership.
type Participant struct {
	UserID      string    `json:"user_id"`
	RoomID      string    `json:"room_id"`
	DisplayName string    `json:"display_name"`
	Language    string    `json:"language"`
	Present     bool      `json:"present"`
	JoinedAt    time.Time `json:"joined_at"`
}
