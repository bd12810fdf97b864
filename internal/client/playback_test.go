package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/babelroom/babelroom/internal/models"
)

type fakeSynth struct {
	mu       sync.Mutex
	failText map[string]bool
	calls    []string
}

func (s *fakeSynth) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if s.failText[text] {
		return nil, errors.New("synthesis unavailable")
	}
	return []byte(lang + ":" + text), nil
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
}

func (p *fakePlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, string(audio))
	return nil
}

func (p *fakePlayer) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.played))
	copy(out, p.played)
	return out
}

func TestPlaybackSequentialOrder(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	q := NewPlaybackQueue(synth, player, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(models.PlaybackItem{Text: "one", Language: "es"})
	q.Enqueue(models.PlaybackItem{Text: "two", Language: "es"})
	q.Enqueue(models.PlaybackItem{Text: "three", Language: "es"})

	waitFor(t, "all items played", func() bool { return len(player.all()) == 3 })
	want := []string{"es:one", "es:two", "es:three"}
	got := player.all()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPlaybackDeferredWhileRecording(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	q := NewPlaybackQueue(synth, player, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.SetRecording(true)
	q.Enqueue(models.PlaybackItem{Text: "held-1", Language: "fr"})
	q.Enqueue(models.PlaybackItem{Text: "held-2", Language: "fr"})

	if q.Pending() != 2 {
		t.Fatalf("expected 2 pending items, got %d", q.Pending())
	}
	if len(player.all()) != 0 {
		t.Fatal("nothing should play while recording")
	}

	q.SetRecording(false)
	q.Enqueue(models.PlaybackItem{Text: "after", Language: "fr"})

	waitFor(t, "deferred flush", func() bool { return len(player.all()) == 3 })
	want := []string{"fr:held-1", "fr:held-2", "fr:after"}
	got := player.all()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeferredPlaybackFlushesOnAutoStop(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	q := NewPlaybackQueue(synth, player, testLogger())

	tr := &fakeTransport{ready: true}
	cap := newFakeCapture()
	r := newTestRecorder(RecorderConfig{
		Language:       "en-US",
		Detector:       &scriptDetector{events: []VADEvent{VADSpeechStart, VADSpeechEnd}},
		SilenceTimeout: 30 * time.Millisecond,
	}, tr, cap)
	r.OnStop = func() { q.SetRecording(false) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.SetRecording(true)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	q.Enqueue(models.PlaybackItem{Text: "held", Language: "es"})

	// Silence ends the session without any explicit stop; the deferred item
	// must play as soon as the machine settles back to idle.
	cap.frames <- Frame{Data: []byte("speech"), Timestamp: time.Now()}
	cap.frames <- Frame{Data: []byte("quiet"), Timestamp: time.Now()}

	waitFor(t, "deferred item played", func() bool { return len(player.all()) == 1 })
	if got := player.all()[0]; got != "es:held" {
		t.Errorf("unexpected playback %q", got)
	}
	if r.State() != StateIdle {
		t.Errorf("expected idle recorder, got %s", r.State())
	}
}

func TestPlaybackDropsFailedSynthesis(t *testing.T) {
	synth := &fakeSynth{failText: map[string]bool{"bad": true}}
	player := &fakePlayer{}
	q := NewPlaybackQueue(synth, player, testLogger())

	var dropped []string
	var droppedMu sync.Mutex
	q.OnSoftError = func(item models.PlaybackItem, err error) {
		droppedMu.Lock()
		dropped = append(dropped, item.Text)
		droppedMu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	q.Enqueue(models.PlaybackItem{Text: "good-1", Language: "de"})
	q.Enqueue(models.PlaybackItem{Text: "bad", Language: "de"})
	q.Enqueue(models.PlaybackItem{Text: "good-2", Language: "de"})

	waitFor(t, "queue drained", func() bool { return len(player.all()) == 2 })
	got := player.all()
	if got[0] != "de:good-1" || got[1] != "de:good-2" {
		t.Errorf("unexpected playback order: %v", got)
	}
	droppedMu.Lock()
	defer droppedMu.Unlock()
	if len(dropped) != 1 || dropped[0] != "bad" {
		t.Errorf("expected one dropped item %q, got %v", "bad", dropped)
	}
}
