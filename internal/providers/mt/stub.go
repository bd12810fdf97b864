package mt

import (
	"context"
	"errors"
	"sync"
)

// Call records one translation invocation for assertions.
type Call struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Stub translates by tagging the text with the target language, and records
// every call so tests can assert the one-call-per-language invariant.
type Stub struct {
	mu    sync.Mutex
	calls []Call
	// FailLangs lists target languages whose translation should fail.
	FailLangs map[string]bool
}

func NewStub() *Stub { return &Stub{FailLangs: map[string]bool{}} }

func (s *Stub) Name() string                       { return "stub" }
func (s *Stub) Available(ctx context.Context) bool { return true }
func (s *Stub) Close() error                       { return nil }

func (s *Stub) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	fail := s.FailLangs[targetLang]
	s.mu.Unlock()

	if fail {
		return "", errors.New("stub: translation failed")
	}
	return "[" + targetLang + "] " + text, nil
}

func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
