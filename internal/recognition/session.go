package recognition

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/metrics"
	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/providers/stt"
)

// session binds one recording session to its recognition stream handle. The
// handle may be swapped by a transparent restart, so all stream access goes
// through the session mutex.
type session struct {
	rec  models.RecordingSession
	cfg  stt.StreamConfig
	sink Sink
	mgr  *Manager
	log  *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stream   stt.Stream
	stopped  bool
	lastSeq  int64
	tsSeq    int64 // transcript segment counter
	restarts int
	windowAt time.Time // start of the rolling restart window
}

func (s *session) setStream(st stt.Stream) {
	s.mu.Lock()
	s.stream = st
	s.mu.Unlock()
}

func (s *session) push(seq int64, chunk []byte) error {
	s.mu.Lock()
	if s.stopped || s.stream == nil {
		s.mu.Unlock()
		return nil
	}
	if seq <= s.lastSeq {
		// Reconnect flushes can replay chunks the stream already has.
		s.mu.Unlock()
		return nil
	}
	s.lastSeq = seq
	st := s.stream
	s.mu.Unlock()

	if err := st.Send(chunk); err != nil {
		// The pump observes the same failure through the results channel and
		// handles restart or teardown; the push itself is not an error the
		// client needs to see.
		s.log.WithError(err).Debug("audio forward failed")
	}
	return nil
}

func (s *session) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	st := s.stream
	s.mu.Unlock()

	if st != nil {
		_ = st.Close()
	}
	s.cancel()
}

// pump drains one stream handle. On a recoverable failure it reopens the
// stream with the identical config and keeps going, bounded by the restart
// budget; anything else ends the session with a single speech error.
func (s *session) pump(stream stt.Stream) {
	for {
		for res := range stream.Results() {
			s.emit(res)
		}

		err := stream.Err()
		if err == nil {
			// Deliberate close (Stop) or clean provider EOF.
			return
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		allowed := s.allowRestartLocked()
		s.mu.Unlock()

		if !stt.Recoverable(err) || !allowed {
			s.fatal(err)
			return
		}

		next, oerr := s.mgr.stt.Open(s.ctx, s.cfg)
		if oerr != nil {
			s.fatal(oerr)
			return
		}
		s.setStream(next)
		stream = next

		metrics.RecognitionRestarts.Inc()
		s.log.WithError(err).Info("recognition stream restarted")
	}
}

// allowRestartLocked applies the counter-plus-window-start budget: the
// counter resets when the window has elapsed, and a restart is allowed while
// the counter is under budget.
func (s *session) allowRestartLocked() bool {
	now := time.Now()
	if now.Sub(s.windowAt) > s.mgr.cfg.RestartWindow {
		s.windowAt = now
		s.restarts = 0
	}
	if s.restarts >= s.mgr.cfg.RestartBudget {
		return false
	}
	s.restarts++
	return true
}

func (s *session) emit(res stt.Result) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.tsSeq++
	seg := models.TranscriptSegment{
		Text:     res.Text,
		IsFinal:  res.IsFinal,
		Language: s.rec.Language,
		Seq:      s.tsSeq,
	}
	s.mu.Unlock()

	s.sink.OnTranscript(s.rec, seg)
}

// fatal tears the session down and surfaces the error exactly once.
func (s *session) fatal(err error) {
	removed := s.mgr.remove(s.rec.UserID, s)

	s.mu.Lock()
	alreadyStopped := s.stopped
	s.stopped = true
	s.mu.Unlock()
	s.cancel()

	if !removed || alreadyStopped {
		return
	}
	metrics.ActiveRecordingSessions.Dec()
	metrics.RecognitionFatalErrors.Inc()
	s.log.WithError(err).Error("recording session failed")
	s.sink.OnSessionError(s.rec, err)
}
