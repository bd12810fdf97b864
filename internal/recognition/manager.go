// Package recognition owns the lifecycle of one external streaming
// recognition handle per active recording session. The handle is exclusively
// owned here: audio goes in through PushAudio, transcripts come out through
// the Sink, and nobody else touches the stream.
package recognition

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/metrics"
	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/providers/stt"
	"github.com/babelroom/babelroom/internal/utils"
)

// Sink receives session output. OnTranscript fires for interim and final
// segments; OnSessionError fires exactly once, only for fatal failures, after
// which the session is gone.
type Sink interface {
	OnTranscript(session models.RecordingSession, seg models.TranscriptSegment)
	OnSessionError(session models.RecordingSession, err error)
}

// Params describes one recording session at start_speech time. The same
// parameters are reused verbatim for transparent stream restarts.
type Params struct {
	UserID         string
	RoomID         string
	Encoding       models.Encoding
	SampleRate     int
	Language       string
	Mode           models.Mode
	TargetLanguage string
}

type Config struct {
	// RestartBudget is the number of transparent restarts allowed within a
	// rolling RestartWindow before a recoverable error downgrades to fatal.
	RestartBudget int
	RestartWindow time.Duration
}

type Manager struct {
	stt stt.Provider
	cfg Config
	log *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(provider stt.Provider, cfg Config, log *logrus.Logger) *Manager {
	if cfg.RestartBudget <= 0 {
		cfg.RestartBudget = 2
	}
	if cfg.RestartWindow <= 0 {
		cfg.RestartWindow = 30 * time.Second
	}
	return &Manager{
		stt:      provider,
		cfg:      cfg,
		log:      log.WithField("component", "recognition"),
		sessions: make(map[string]*session),
	}
}

// Start opens a recognition stream for the participant. A second start while
// one is active is rejected with CONFLICT.
func (m *Manager) Start(ctx context.Context, p Params, sink Sink) (models.RecordingSession, error) {
	const op = "recognition.Start"

	if !p.Encoding.Valid() {
		return models.RecordingSession{}, utils.E(utils.CodeInvalidArgument, op, "unsupported encoding", stt.ErrBadEncoding)
	}

	rec := models.RecordingSession{
		SessionID:      uuid.NewString(),
		UserID:         p.UserID,
		RoomID:         p.RoomID,
		Encoding:       p.Encoding,
		SampleRate:     p.SampleRate,
		Language:       p.Language,
		Mode:           p.Mode,
		TargetLanguage: p.TargetLanguage,
		CreatedAt:      time.Now().UTC(),
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &session{
		rec: rec,
		cfg: stt.StreamConfig{
			Encoding:     p.Encoding,
			SampleRateHz: p.SampleRate,
			Language:     p.Language,
		},
		sink:     sink,
		mgr:      m,
		ctx:      streamCtx,
		cancel:   cancel,
		windowAt: time.Now(),
		log:      m.log.WithFields(logrus.Fields{"session_id": rec.SessionID, "user_id": p.UserID}),
	}

	// Atomic check-then-insert keeps the one-session-per-participant
	// invariant under concurrent starts.
	m.mu.Lock()
	if _, ok := m.sessions[p.UserID]; ok {
		m.mu.Unlock()
		cancel()
		return models.RecordingSession{}, utils.E(utils.CodeConflict, op, "recording session already active", nil)
	}
	m.sessions[p.UserID] = s
	m.mu.Unlock()

	stream, err := m.stt.Open(streamCtx, s.cfg)
	if err != nil {
		m.remove(p.UserID, s)
		cancel()
		if stt.Recoverable(err) {
			return models.RecordingSession{}, utils.E(utils.CodeUnavailable, op, "recognition unavailable", err)
		}
		return models.RecordingSession{}, utils.E(utils.CodeInvalidArgument, op, "failed to open recognition stream", err)
	}
	s.setStream(stream)

	metrics.ActiveRecordingSessions.Inc()
	s.log.WithFields(logrus.Fields{
		"encoding":    rec.Encoding,
		"sample_rate": rec.SampleRate,
		"language":    rec.Language,
		"mode":        rec.Mode,
	}).Info("recording session started")

	go s.pump(stream)
	return rec, nil
}

// PushAudio forwards one audio chunk in production order. Duplicate or stale
// sequence numbers (reconnect replays) are dropped silently.
func (m *Manager) PushAudio(userID string, seq int64, chunk []byte) error {
	const op = "recognition.PushAudio"

	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return utils.E(utils.CodeNotFound, op, "no active recording session", nil)
	}
	return s.push(seq, chunk)
}

// Active reports whether the participant has a live recording session.
func (m *Manager) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// Session returns the live session record, if any.
func (m *Manager) Session(userID string) (models.RecordingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.rec, true
	}
	return models.RecordingSession{}, false
}

// Stop ends the participant's session, cancels the recognition handle and
// discards any audio still in flight. Idempotent.
func (m *Manager) Stop(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	s.stop()
	metrics.ActiveRecordingSessions.Dec()
	s.log.Info("recording session stopped")
}

// remove detaches a session that terminated on its own (fatal stream error).
// Reports whether this call removed it, so error delivery happens once.
func (m *Manager) remove(userID string, s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[userID]; ok && cur == s {
		delete(m.sessions, userID)
		return true
	}
	return false
}
