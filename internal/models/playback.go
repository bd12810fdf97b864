package models

import "time"

// PlaybackItem is one piece of translated text waiting to be synthesized and
// played. Items for a client play strictly sequentially, and are held while
// the client itself is recording.
type PlaybackItem struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Voice      string    `json:"voice,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
