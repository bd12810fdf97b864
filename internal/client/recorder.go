package client

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/utils"
)

// State of the recording state machine.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateRecording State = "recording"
	StateLocked    State = "locked"
	StateStopping  State = "stopping"
	StateError     State = "error"
)

// Frame is one captured audio chunk.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Capture abstracts the platform microphone. SupportsOpus decides the
// session encoding once at start; the capture emits fixed-interval chunks.
type Capture interface {
	Start(ctx context.Context) (<-chan Frame, <-chan error, error)
	Stop() error
	SupportsOpus() bool
	SampleRate() int
}

// Transport is the recorder's view of the session connection.
type Transport interface {
	Ready() bool
	SendStart(enc models.Encoding, sampleRate int, lang string, mode models.Mode, targetLang string) error
	SendChunk(seq int64, chunk []byte) error
	SendStop() error
	// SendStopAsync is fire-and-forget for page-hide style forced stops.
	SendStopAsync()
}

type RecorderConfig struct {
	Language       string
	Mode           models.Mode
	TargetLanguage string

	SilenceTimeout time.Duration // auto-stop after VAD speech-end, non-locked non-solo
	MaxDuration    time.Duration // hard session cap regardless of lock state
	BufferCap      int

	// Detector overrides the default VAD (energy for LINEAR16, always-on for
	// OPUS). Mostly for tests.
	Detector Detector
}

// Recorder owns microphone capture, voice-activity segmentation, encoding
// selection and local chunk buffering. All cross-callback state lives here,
// guarded by one mutex; timers and the capture loop call back into it.
type Recorder struct {
	cfg       RecorderConfig
	transport Transport
	capture   Capture
	log       *logrus.Entry

	// OnStop is invoked after every transition back to idle, whether the stop
	// was explicit, a silence or max-duration timer, or failure recovery. Set
	// it before Start; the playback queue hooks its flush here.
	OnStop func()

	mu           sync.Mutex
	state        State
	encoding     models.Encoding
	sampleRate   int
	det          Detector
	buf          *ChunkBuffer
	seq          int64
	speechOK     bool // speech confirmed since session start
	silenceTimer *time.Timer
	maxTimer     *time.Timer
	cancel       context.CancelFunc
	lastErr      error
}

func NewRecorder(cfg RecorderConfig, transport Transport, capture Capture, log *logrus.Logger) *Recorder {
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = 10 * time.Second
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 60 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = models.ModeRoom
	}
	return &Recorder{
		cfg:       cfg,
		transport: transport,
		capture:   capture,
		log:       log.WithField("component", "recorder"),
		state:     StateIdle,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the error that last routed the machine through ERROR.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Start begins a recording session. Refused while the transport is not ready
// or a session is already active. Microphone denial fails the start without
// creating a partial session.
func (r *Recorder) Start(ctx context.Context) error {
	const op = "Recorder.Start"

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "recording session already active", nil)
	}
	if !r.transport.Ready() {
		r.mu.Unlock()
		return utils.E(utils.CodeUnavailable, op, "connection not ready", nil)
	}
	r.state = StateStarting
	r.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	frames, errs, err := r.capture.Start(sessionCtx)
	if err != nil {
		cancel()
		r.mu.Lock()
		r.state = StateIdle
		r.lastErr = err
		r.mu.Unlock()
		return utils.E(utils.CodeUnauthorized, op, "microphone access denied", err)
	}

	// Encoding policy: compressed when the capture supports it, uncompressed
	// PCM otherwise. Fixed for the whole session.
	encoding := models.EncodingLinear16
	if r.capture.SupportsOpus() {
		encoding = models.EncodingOpus
	}
	sampleRate := r.capture.SampleRate()

	det := r.cfg.Detector
	if det == nil {
		if encoding == models.EncodingOpus {
			det = &AlwaysOnDetector{}
		} else {
			det = NewEnergyDetector(0, 0, 0)
		}
	}

	if err := r.transport.SendStart(encoding, sampleRate, r.cfg.Language, r.cfg.Mode, r.cfg.TargetLanguage); err != nil {
		_ = r.capture.Stop()
		cancel()
		r.mu.Lock()
		r.state = StateIdle
		r.lastErr = err
		r.mu.Unlock()
		return utils.E(utils.CodeUnavailable, op, "failed to start session", err)
	}

	r.mu.Lock()
	if r.state != StateStarting {
		// Stop ran while the session was still coming up and the machine has
		// already settled back to idle; undo the side effects instead of
		// resurrecting a session nobody owns.
		r.mu.Unlock()
		cancel()
		_ = r.capture.Stop()
		_ = r.transport.SendStop()
		r.log.Debug("recording stopped before start completed")
		return nil
	}
	r.state = StateRecording
	r.encoding = encoding
	r.sampleRate = sampleRate
	r.det = det
	r.buf = NewChunkBuffer(r.cfg.BufferCap)
	r.seq = 0
	r.speechOK = false
	r.cancel = cancel
	r.maxTimer = time.AfterFunc(r.cfg.MaxDuration, func() {
		r.log.Debug("max session duration reached")
		r.Stop()
	})
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"encoding":    encoding,
		"sample_rate": sampleRate,
		"mode":        r.cfg.Mode,
	}).Info("recording started")

	go r.loop(frames, errs)
	return nil
}

// Lock transitions a held session into locked mode: only an explicit stop or
// the max-duration cap ends it, silence no longer does.
func (r *Recorder) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.state = StateLocked
	r.stopSilenceTimerLocked()
}

// Release is the push-to-talk key-up: it stops the session unless locked.
func (r *Recorder) Release() {
	r.mu.Lock()
	locked := r.state == StateLocked
	r.mu.Unlock()
	if !locked {
		r.Stop()
	}
}

// Stop ends the session. Idempotent: a second call while already stopping is
// a no-op. Buffered chunks still unsent are discarded with the session.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StateLocked && r.state != StateStarting {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	r.teardownLocked()
	r.mu.Unlock()

	_ = r.capture.Stop()
	if err := r.transport.SendStop(); err != nil {
		r.log.WithError(err).Debug("stop message failed")
	}

	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
	r.log.Info("recording stopped")
	r.notifyStop()
}

// ForceStop is the page-hide path: best effort, never waits on the server.
func (r *Recorder) ForceStop() {
	r.mu.Lock()
	if r.state == StateIdle || r.state == StateStopping {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	r.teardownLocked()
	r.mu.Unlock()

	_ = r.capture.Stop()
	r.transport.SendStopAsync()

	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
	r.notifyStop()
}

// OnTransportReady flushes buffered chunks after a reconnect, in original
// production order, ahead of any newly produced chunk.
func (r *Recorder) OnTransportReady() {
	r.mu.Lock()
	buf := r.buf
	active := r.state == StateRecording || r.state == StateLocked
	r.mu.Unlock()
	if !active || buf == nil {
		return
	}
	r.flush(buf)
}

func (r *Recorder) loop(frames <-chan Frame, errs <-chan error) {
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			r.handleFrame(frame)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				r.fail(err)
				return
			}
		}
	}
}

func (r *Recorder) handleFrame(frame Frame) {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StateLocked {
		r.mu.Unlock()
		return
	}

	ev := r.det.Process(frame.Data)

	switch ev {
	case VADSpeechStart:
		r.speechOK = true
		r.stopSilenceTimerLocked()
	case VADSpeechEnd:
		if r.state == StateRecording && r.cfg.Mode != models.ModeSolo {
			r.startSilenceTimerLocked()
		}
	}

	sendable := r.speechOK && r.transport.Ready()
	buf := r.buf
	r.mu.Unlock()

	if !sendable {
		buf.Push(frame.Data)
		return
	}

	// Anything buffered goes out first so production order is preserved.
	// Sequence numbers are handed out at send time, after the flush, so the
	// server sees them strictly increasing in delivery order.
	r.flush(buf)
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()
	if err := r.transport.SendChunk(seq, frame.Data); err != nil {
		buf.Push(frame.Data)
	}
}

// flush drains the buffer oldest-first. Chunks that still cannot be sent go
// back in order.
func (r *Recorder) flush(buf *ChunkBuffer) {
	chunks := buf.Flush()
	for i, chunk := range chunks {
		r.mu.Lock()
		r.seq++
		seq := r.seq
		r.mu.Unlock()
		if err := r.transport.SendChunk(seq, chunk); err != nil {
			for _, rest := range chunks[i:] {
				buf.Push(rest)
			}
			return
		}
	}
}

func (r *Recorder) fail(err error) {
	r.mu.Lock()
	if r.state == StateIdle || r.state == StateStopping {
		r.mu.Unlock()
		return
	}
	r.state = StateError
	r.lastErr = err
	r.teardownLocked()
	r.mu.Unlock()

	r.log.WithError(err).Error("recording failed")
	_ = r.capture.Stop()
	_ = r.transport.SendStop()

	// ERROR always routes back to IDLE.
	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
	r.notifyStop()
}

func (r *Recorder) notifyStop() {
	if r.OnStop != nil {
		r.OnStop()
	}
}

func (r *Recorder) teardownLocked() {
	r.stopSilenceTimerLocked()
	if r.maxTimer != nil {
		r.maxTimer.Stop()
		r.maxTimer = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Recorder) startSilenceTimerLocked() {
	r.stopSilenceTimerLocked()
	r.silenceTimer = time.AfterFunc(r.cfg.SilenceTimeout, func() {
		r.log.Debug("silence timeout reached")
		r.Stop()
	})
}

func (r *Recorder) stopSilenceTimerLocked() {
	if r.silenceTimer != nil {
		r.silenceTimer.Stop()
		r.silenceTimer = nil
	}
}
