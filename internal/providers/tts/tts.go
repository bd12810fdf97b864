// Package tts abstracts speech synthesis. Results are content-addressable:
// identical text and voice config always yield equivalent audio, so callers
// may cache by content+voice key.
package tts

import "context"

// VoiceConfig selects the synthesis voice. Voice may be empty for the
// provider default of the language.
type VoiceConfig struct {
	Language string
	Voice    string
}

type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Synthesize(ctx context.Context, text string, voice VoiceConfig) ([]byte, error)
	Close() error
}
