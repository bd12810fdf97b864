package models

import "time"

// Encoding is the audio encoding negotiated once at session start. It must not
// change mid-session.
type Encoding string

const (
	EncodingOpus     Encoding = "OPUS"
	EncodingLinear16 Encoding = "LINEAR16"
)

func (e Encoding) Valid() bool {
	return e == EncodingOpus || e == EncodingLinear16
}

// Mode selects fan-out behavior: room sessions translate for every other
// present participant, solo sessions translate for the speaker alone into an
// explicitly chosen target language.
type Mode string

const (
	ModeRoom Mode = "room"
	ModeSolo Mode = "solo"
)

// RecordingSession is the bounded lifetime of one continuous microphone
// capture plus its recognition stream. Exactly one may be active per
// participant at a time.
type RecordingSession struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	RoomID     string    `json:"room_id"`
	Encoding   Encoding  `json:"encoding"`
	SampleRate int       `json:"sample_rate"`
	Language   string    `json:"language"`
	Mode       Mode      `json:"mode"`
	// TargetLanguage is only meaningful in solo mode.
	TargetLanguage string    `json:"target_language,omitempty"`
	Locked         bool      `json:"locked"`
	CreatedAt      time.Time `json:"created_at"`
}
