package stt

import (
	"context"
	"sync"
)

// Stub is a deterministic in-process recognizer for tests and local runs.
// Each stream echoes sent chunks back as final transcripts, and tests can
// drive interim results or failures directly.
type Stub struct {
	mu      sync.Mutex
	streams []*StubStream
	openErr error
}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string                       { return "stub" }
func (s *Stub) Available(ctx context.Context) bool { return true }
func (s *Stub) Close() error                       { return nil }

// FailOpen makes subsequent Open calls fail with err (nil to reset).
func (s *Stub) FailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

func (s *Stub) Open(ctx context.Context, cfg StreamConfig) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	st := &StubStream{
		cfg:     cfg,
		results: make(chan Result, 64),
	}
	s.streams = append(s.streams, st)
	return st, nil
}

// Opened returns how many streams have been opened, restarts included.
func (s *Stub) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Last returns the most recently opened stream.
func (s *Stub) Last() *StubStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) == 0 {
		return nil
	}
	return s.streams[len(s.streams)-1]
}

type StubStream struct {
	cfg     StreamConfig
	results chan Result

	mu     sync.Mutex
	sent   [][]byte
	closed bool
	err    error
	echo   bool
}

// SetEcho makes the stream emit every sent chunk back as a final transcript,
// which keeps end-to-end tests one-message-per-chunk simple.
func (st *StubStream) SetEcho(on bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.echo = on
}

func (st *StubStream) Config() StreamConfig { return st.cfg }

func (st *StubStream) Send(chunk []byte) error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return ErrTransportReset
	}
	st.sent = append(st.sent, append([]byte(nil), chunk...))
	echo := st.echo
	st.mu.Unlock()

	if echo {
		st.results <- Result{Text: string(chunk), IsFinal: true, Confidence: 1}
	}
	return nil
}

func (st *StubStream) Sent() [][]byte {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([][]byte, len(st.sent))
	copy(out, st.sent)
	return out
}

// EmitInterim and EmitFinal push recognition results into the stream.
func (st *StubStream) EmitInterim(text string) {
	st.results <- Result{Text: text, IsFinal: false, Confidence: 0.5}
}

func (st *StubStream) EmitFinal(text string) {
	st.results <- Result{Text: text, IsFinal: true, Confidence: 0.9}
}

// Fail terminates the stream with err, as if the provider dropped it.
func (st *StubStream) Fail(err error) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.closed = true
	st.err = err
	st.mu.Unlock()
	close(st.results)
}

func (st *StubStream) Results() <-chan Result { return st.results }

func (st *StubStream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

func (st *StubStream) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	st.mu.Unlock()
	close(st.results)
	return nil
}
