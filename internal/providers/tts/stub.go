package tts

import (
	"context"
	"errors"
	"sync"
)

// Stub returns the text bytes as "audio" and counts invocations, which is all
// the cache and playback tests need.
type Stub struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string                       { return "stub" }
func (s *Stub) Available(ctx context.Context) bool { return true }
func (s *Stub) Close() error                       { return nil }

func (s *Stub) SetFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Stub) Synthesize(ctx context.Context, text string, voice VoiceConfig) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	fail := s.fail
	s.mu.Unlock()

	if fail {
		return nil, errors.New("stub: synthesis failed")
	}
	return []byte(voice.Language + ":" + text), nil
}
