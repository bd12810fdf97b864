package fanout

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/protocol"
	"github.com/babelroom/babelroom/internal/providers/mt"
	"github.com/babelroom/babelroom/internal/registry"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []protocol.ServerMessage
}

func (s *fakeSender) Send(msg protocol.ServerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSender) all() []protocol.ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ServerMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type roomFixture struct {
	reg     *registry.Registry
	senders map[string]*fakeSender
}

func newRoom(t *testing.T, participants ...models.Participant) *roomFixture {
	t.Helper()
	f := &roomFixture{
		reg:     registry.New(8, testLogger()),
		senders: make(map[string]*fakeSender),
	}
	for _, p := range participants {
		s := &fakeSender{}
		f.senders[p.UserID] = s
		if _, err := f.reg.Join("room-1", p, s); err != nil {
			t.Fatalf("join %s: %v", p.UserID, err)
		}
	}
	return f
}

func speakerSession(mode models.Mode, target string) models.RecordingSession {
	return models.RecordingSession{
		SessionID:      "sess-1",
		UserID:         "alice",
		RoomID:         "room-1",
		Language:       "en-US",
		Mode:           mode,
		TargetLanguage: target,
	}
}

func finalSegment(text string) models.TranscriptSegment {
	return models.TranscriptSegment{Text: text, IsFinal: true, Language: "en-US", Seq: 1}
}

func TestDispatchOneCallPerLanguageGroup(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "bob", Language: "es"},
		models.Participant{UserID: "carla", Language: "es-MX"},
		models.Participant{UserID: "dmitri", Language: "ru"},
	)
	translator := mt.NewStub()
	e := NewEngine(translator, f.reg, "en-US", testLogger())

	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), finalSegment("hello"))

	// bob and carla share the normalized "es" group, so two calls total.
	calls := translator.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 translation calls, got %d: %v", len(calls), calls)
	}
	targets := map[string]bool{}
	for _, c := range calls {
		if c.Text != "hello" || c.SourceLang != "en-US" {
			t.Errorf("unexpected call: %+v", c)
		}
		targets[c.TargetLang] = true
	}
	if !targets["es"] || !targets["ru"] {
		t.Errorf("expected targets es and ru, got %v", targets)
	}

	for _, id := range []string{"bob", "carla"} {
		msgs := f.senders[id].all()
		if len(msgs) != 1 {
			t.Fatalf("%s: expected 1 message, got %d", id, len(msgs))
		}
		if msgs[0].Text != "[es] hello" || msgs[0].ToUserID != id {
			t.Errorf("%s: unexpected message %+v", id, msgs[0])
		}
	}
	if msgs := f.senders["dmitri"].all(); len(msgs) != 1 || msgs[0].Text != "[ru] hello" {
		t.Errorf("dmitri: unexpected messages %v", f.senders["dmitri"].all())
	}
	if got := f.senders["alice"].all(); len(got) != 0 {
		t.Errorf("speaker must not receive fan-out, got %v", got)
	}
}

func TestDispatchSameLanguageSkipsTranslation(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "brit", Language: "en-GB"},
	)
	translator := mt.NewStub()
	e := NewEngine(translator, f.reg, "en-US", testLogger())

	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), finalSegment("hello"))

	if calls := translator.Calls(); len(calls) != 0 {
		t.Fatalf("same-language recipient needs no translation, got %v", calls)
	}
	msgs := f.senders["brit"].all()
	if len(msgs) != 1 || msgs[0].Text != "hello" {
		t.Fatalf("expected original text delivered, got %v", msgs)
	}
}

func TestDispatchGroupFailureIsIsolated(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "bob", Language: "es"},
		models.Participant{UserID: "dmitri", Language: "ru"},
	)
	translator := mt.NewStub()
	translator.FailLangs["es"] = true
	e := NewEngine(translator, f.reg, "en-US", testLogger())

	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), finalSegment("hello"))

	if msgs := f.senders["bob"].all(); len(msgs) != 0 {
		t.Errorf("failed group must deliver nothing, got %v", msgs)
	}
	msgs := f.senders["dmitri"].all()
	if len(msgs) != 1 || msgs[0].Text != "[ru] hello" {
		t.Errorf("healthy group must still deliver, got %v", msgs)
	}
}

func TestDispatchSkipsInterimAndEmpty(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "bob", Language: "es"},
	)
	translator := mt.NewStub()
	e := NewEngine(translator, f.reg, "en-US", testLogger())

	interim := finalSegment("hel")
	interim.IsFinal = false
	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), interim)
	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), finalSegment(""))

	if calls := translator.Calls(); len(calls) != 0 {
		t.Errorf("interim and empty segments must not translate, got %v", calls)
	}
}

func TestDispatchFallbackLanguage(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "mystery", Language: "??"},
	)
	translator := mt.NewStub()
	e := NewEngine(translator, f.reg, "de-DE", testLogger())

	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), finalSegment("hello"))

	calls := translator.Calls()
	if len(calls) != 1 || calls[0].TargetLang != "de" {
		t.Fatalf("expected one call targeting fallback de, got %v", calls)
	}
}

func TestDispatchSolo(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "bob", Language: "es"},
	)
	translator := mt.NewStub()
	e := NewEngine(translator, f.reg, "en-US", testLogger())

	e.Dispatch(context.Background(), speakerSession(models.ModeSolo, "fr"), finalSegment("hello"))

	calls := translator.Calls()
	if len(calls) != 1 || calls[0].TargetLang != "fr" {
		t.Fatalf("expected single fr call, got %v", calls)
	}
	msgs := f.senders["alice"].all()
	if len(msgs) != 1 || msgs[0].Type != protocol.TypeSoloTranslated || msgs[0].Text != "[fr] hello" {
		t.Fatalf("speaker should get the solo translation, got %v", msgs)
	}
	if got := f.senders["bob"].all(); len(got) != 0 {
		t.Errorf("solo mode must not fan out to the room, got %v", got)
	}
}

func TestDispatchSkipsAbsentRecipients(t *testing.T) {
	f := newRoom(t,
		models.Participant{UserID: "alice", Language: "en-US"},
		models.Participant{UserID: "bob", Language: "es"},
	)
	f.reg.MarkAbsent("room-1", "bob")
	translator := mt.NewStub()
	e := NewEngine(translator, f.reg, "en-US", testLogger())

	e.Dispatch(context.Background(), speakerSession(models.ModeRoom, ""), finalSegment("hello"))

	if calls := translator.Calls(); len(calls) != 0 {
		t.Errorf("no present recipients, no translation expected, got %v", calls)
	}
}
