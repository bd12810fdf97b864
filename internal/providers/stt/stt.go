// Package stt abstracts streaming speech recognition. Providers open one
// Stream per recording session; the stream is exclusively owned by the
// recognition manager and must support being reopened mid-utterance with
// identical parameters.
package stt

import (
	"context"
	"errors"

	"github.com/babelroom/babelroom/internal/models"
)

// Result is one recognition hypothesis. Interim results may be revised; a
// final result is stable and triggers translation fan-out.
type Result struct {
	Text       string
	IsFinal    bool
	Confidence float64
}

// StreamConfig carries the session parameters fixed at start_speech. A
// restarted stream reuses the exact same config.
type StreamConfig struct {
	Encoding     models.Encoding
	SampleRateHz int
	Language     string
}

// Stream is one live recognition stream. Send forwards audio in production
// order. Results is closed when the stream ends; Err then reports why.
type Stream interface {
	Send(chunk []byte) error
	Results() <-chan Result
	Err() error
	Close() error
}

// Provider is the capability interface for a recognition engine.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
	Close() error
}

// Recoverable stream failures: the manager restarts the stream transparently
// (budget permitting). Everything else is fatal to the recording session.
var (
	// ErrStreamExpired marks the provider-imposed maximum stream duration.
	ErrStreamExpired = errors.New("stt: max stream duration reached")
	// ErrTransportReset marks a reset of the connection to the provider.
	ErrTransportReset = errors.New("stt: transport reset")
)

// Fatal stream failures.
var (
	ErrBadEncoding = errors.New("stt: unsupported encoding or sample rate")
	ErrQuota       = errors.New("stt: permission or quota failure")
)

// Recoverable reports whether err warrants a transparent stream restart.
func Recoverable(err error) bool {
	return errors.Is(err, ErrStreamExpired) || errors.Is(err, ErrTransportReset)
}
