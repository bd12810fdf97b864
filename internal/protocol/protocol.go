// Package protocol defines the message catalog carried over the persistent
// websocket between clients and the room service. Control messages are
// causally ordered relative to the audio stream they bracket; audio chunks
// within one recording session carry a monotonically increasing sequence
// number and are delivered in production order over the single ordered
// connection. No ordering is guaranteed across sessions or participants.
package protocol

import (
	"encoding/base64"
	"encoding/json"

	"github.com/babelroom/babelroom/internal/utils"
)

type Type string

// Client to server.
const (
	TypeJoinRoom    Type = "join_room"
	TypeStartSpeech Type = "start_speech"
	TypeSpeechData  Type = "speech_data"
	TypeStopSpeech  Type = "stop_speech"
	TypeClientError Type = "client_error"
)

// Server to client.
const (
	TypeJoined            Type = "joined"
	TypeRecognizedSpeech  Type = "recognized_speech"
	TypeTranslatedMessage Type = "translated_message"
	TypeSoloTranslated    Type = "solo_translated"
	TypeSpeechError       Type = "speech_error"
	TypeParticipantJoined Type = "participant_joined"
	TypeParticipantLeft   Type = "participant_left"
	TypeError             Type = "error"
)

// ClientMessage is the flat envelope for everything a client sends. Fields are
// populated per Type; Decode validates the combination.
type ClientMessage struct {
	Type Type `json:"type"`

	// join_room
	RoomCode    string `json:"room_code,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Language    string `json:"language,omitempty"`

	// start_speech
	Encoding       string `json:"encoding,omitempty"`
	SampleRate     int    `json:"sample_rate,omitempty"`
	Mode           string `json:"mode,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`

	// speech_data
	Seq         int64  `json:"seq,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`

	// client_error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServerMessage is the flat envelope for everything the server sends.
type ServerMessage struct {
	Type Type `json:"type"`

	Text           string `json:"text,omitempty"`
	IsFinal        bool   `json:"is_final,omitempty"`
	Seq            int64  `json:"seq,omitempty"`
	Language       string `json:"language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`

	FromUserID string `json:"from_user_id,omitempty"`
	ToUserID   string `json:"to_user_id,omitempty"`

	// participant_joined / participant_left / joined
	UserID        string   `json:"user_id,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	RoomID        string   `json:"room_id,omitempty"`
	AlreadyJoined bool     `json:"already_joined,omitempty"`
	Participants  []Member `json:"participants,omitempty"`

	// speech_error / error
	Code    utils.Code `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Member is the wire shape of a room participant in joined/presence messages.
type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Present     bool   `json:"present"`
}

// Decode parses and validates one client frame. Unknown types and malformed
// payloads come back as INVALID_ARGUMENT.
func Decode(data []byte) (ClientMessage, error) {
	const op = "protocol.Decode"

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, utils.E(utils.CodeInvalidArgument, op, "invalid json", err)
	}

	switch msg.Type {
	case TypeJoinRoom:
		if msg.RoomCode == "" {
			return msg, utils.E(utils.CodeInvalidArgument, op, "room_code is required", nil)
		}
	case TypeStartSpeech:
		if msg.Encoding == "" || msg.SampleRate <= 0 {
			return msg, utils.E(utils.CodeInvalidArgument, op, "encoding and sample_rate are required", nil)
		}
		if msg.Mode == "solo" && msg.TargetLanguage == "" {
			return msg, utils.E(utils.CodeInvalidArgument, op, "solo mode requires target_language", nil)
		}
	case TypeSpeechData:
		if msg.AudioBase64 == "" {
			return msg, utils.E(utils.CodeInvalidArgument, op, "audio_base64 is required", nil)
		}
		if msg.Seq <= 0 {
			return msg, utils.E(utils.CodeInvalidArgument, op, "seq must be > 0", nil)
		}
	case TypeStopSpeech, TypeClientError:
		// no required fields
	default:
		return msg, utils.E(utils.CodeInvalidArgument, op, "unknown message type", nil)
	}
	return msg, nil
}

// Audio decodes the base64 audio payload of a speech_data message, accepting
// a data-URI prefix the way browsers emit it.
func (m ClientMessage) Audio() ([]byte, error) {
	raw := m.AudioBase64
	for i := 0; i < len(raw); i++ {
		if raw[i] == ',' {
			raw = raw[i+1:] // strip data:...;base64,
			break
		}
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, "protocol.Audio", "invalid audio_base64", err)
	}
	return b, nil
}

// EncodeAudio produces the wire form of an audio chunk.
func EncodeAudio(chunk []byte) string {
	return base64.StdEncoding.EncodeToString(chunk)
}
