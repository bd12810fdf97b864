package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/models"
)

// Synthesizer produces audio for one playback item. The HTTP client
// implementation calls the service's /synthesize endpoint, which caches by
// content+voice key server-side.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Player renders synthesized audio and returns when playback has finished,
// which is what serializes successive items.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// PlaybackQueue serializes synthesized speech. Items never overlap: each
// waits for the previous item's audio to finish. While the local client is
// recording, arriving items are deferred so the microphone never hears the
// device's own speaker; they flush in arrival order the moment recording
// stops.
type PlaybackQueue struct {
	synth Synthesizer
	play  Player
	log   *logrus.Entry

	mu        sync.Mutex
	recording bool
	deferred  []models.PlaybackItem
	wake      chan struct{}
	queue     []models.PlaybackItem

	// OnSoftError is invoked when synthesis fails and the item is dropped.
	OnSoftError func(item models.PlaybackItem, err error)
}

func NewPlaybackQueue(synth Synthesizer, play Player, log *logrus.Logger) *PlaybackQueue {
	return &PlaybackQueue{
		synth: synth,
		play:  play,
		log:   log.WithField("component", "playback"),
		wake:  make(chan struct{}, 1),
	}
}

// Enqueue adds one translated message for playback.
func (q *PlaybackQueue) Enqueue(item models.PlaybackItem) {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	if q.recording {
		q.deferred = append(q.deferred, item)
		q.mu.Unlock()
		return
	}
	q.queue = append(q.queue, item)
	q.mu.Unlock()
	q.signal()
}

// SetRecording gates playback on the local recording state. Turning it off
// promotes deferred items, keeping their arrival order ahead of anything new.
func (q *PlaybackQueue) SetRecording(recording bool) {
	q.mu.Lock()
	q.recording = recording
	if !recording && len(q.deferred) > 0 {
		q.queue = append(q.deferred, q.queue...)
		q.deferred = nil
	}
	q.mu.Unlock()
	if !recording {
		q.signal()
	}
}

// Pending reports queued plus deferred item counts.
func (q *PlaybackQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue) + len(q.deferred)
}

func (q *PlaybackQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run drives playback until ctx is done. It is the only goroutine touching
// the synthesizer and player, which is what makes playback strictly
// sequential.
func (q *PlaybackQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}

		for {
			q.mu.Lock()
			if q.recording || len(q.queue) == 0 {
				q.mu.Unlock()
				break
			}
			item := q.queue[0]
			q.queue = q.queue[1:]
			q.mu.Unlock()

			q.playItem(ctx, item)
		}
	}
}

func (q *PlaybackQueue) playItem(ctx context.Context, item models.PlaybackItem) {
	audio, err := q.synth.Synthesize(ctx, item.Text, item.Language)
	if err != nil {
		// Synthesis failure is non-fatal: drop this item, keep going.
		q.log.WithError(err).Warn("synthesis failed, dropping item")
		if q.OnSoftError != nil {
			q.OnSoftError(item, err)
		}
		return
	}
	if err := q.play.Play(ctx, audio); err != nil {
		q.log.WithError(err).Warn("playback failed")
	}
}
