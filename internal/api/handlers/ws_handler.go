package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/fanout"
	"github.com/babelroom/babelroom/internal/metrics"
	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/protocol"
	"github.com/babelroom/babelroom/internal/recognition"
	"github.com/babelroom/babelroom/internal/registry"
	"github.com/babelroom/babelroom/internal/services"
	"github.com/babelroom/babelroom/internal/utils"
)

// WSHandler runs the session protocol: one goroutine per connection reading
// client frames, with writes serialized through wsConn. Everything a
// connection owns (its recording session, its membership) is torn down when
// the read loop exits.
type WSHandler struct {
	rooms       services.RoomService
	registry    *registry.Registry
	recognition *recognition.Manager
	fanout      *fanout.Engine
	log         *logrus.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(rooms services.RoomService, reg *registry.Registry, rec *recognition.Manager, fo *fanout.Engine, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		rooms:       rooms,
		registry:    reg,
		recognition: rec,
		fanout:      fo,
		log:         log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) Send(msg protocol.ServerMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) sendError(err error) {
	var ae *utils.AppError
	msg := protocol.ServerMessage{Type: protocol.TypeError, Code: utils.CodeInternal}
	if errors.As(err, &ae) {
		msg.Code = ae.Code
		msg.Message = ae.Message
	}
	_ = w.Send(msg)
}

// connState is the per-connection session context threaded through every
// message handler, never ambient globals.
type connState struct {
	userID string
	roomID string
	joined bool
}

func (h *WSHandler) Session(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response in most cases
		return
	}
	defer conn.Close()

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	wc := &wsConn{c: conn}
	st := &connState{userID: userID}
	log := h.log.WithFields(logrus.Fields{"user_id": userID})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	defer func() {
		// The connection owns its recording session and its presence.
		h.recognition.Stop(st.userID)
		if st.joined {
			h.registry.MarkAbsent(st.roomID, st.userID)
			h.registry.Broadcast(st.roomID, st.userID, protocol.ServerMessage{
				Type:   protocol.TypeParticipantLeft,
				UserID: st.userID,
			})
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		msg, err := protocol.Decode(data)
		if err != nil {
			wc.sendError(err)
			continue
		}

		switch msg.Type {
		case protocol.TypeJoinRoom:
			h.handleJoin(ctx, st, wc, msg, log)

		case protocol.TypeStartSpeech:
			h.handleStartSpeech(ctx, st, wc, msg, log)

		case protocol.TypeSpeechData:
			h.handleSpeechData(st, wc, msg)

		case protocol.TypeStopSpeech:
			// Idempotent on both sides.
			h.recognition.Stop(st.userID)

		case protocol.TypeClientError:
			log.WithFields(logrus.Fields{
				"code":    msg.Code,
				"message": msg.Message,
			}).Warn("client reported error")
		}
	}
}

func (h *WSHandler) handleJoin(ctx context.Context, st *connState, wc *wsConn, msg protocol.ClientMessage, log *logrus.Entry) {
	room, err := h.rooms.GetByCode(ctx, msg.RoomCode)
	if err != nil {
		wc.sendError(err)
		return
	}

	res, err := h.registry.Join(room.RoomID, models.Participant{
		UserID:      st.userID,
		DisplayName: msg.DisplayName,
		Language:    msg.Language,
	}, wc)
	if err != nil {
		wc.sendError(err)
		return
	}

	st.roomID = room.RoomID
	st.joined = true

	// Joining keeps the room record alive.
	if err := h.rooms.Touch(ctx, room.RoomID); err != nil {
		log.WithError(err).Debug("room touch failed")
	}

	members := make([]protocol.Member, 0, len(res.Members))
	for _, m := range res.Members {
		members = append(members, protocol.Member{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Language:    m.Language,
			Present:     m.Present,
		})
	}
	_ = wc.Send(protocol.ServerMessage{
		Type:          protocol.TypeJoined,
		RoomID:        room.RoomID,
		UserID:        st.userID,
		AlreadyJoined: res.AlreadyJoined,
		Participants:  members,
	})

	if !res.AlreadyJoined {
		h.registry.Broadcast(room.RoomID, st.userID, protocol.ServerMessage{
			Type:        protocol.TypeParticipantJoined,
			UserID:      st.userID,
			DisplayName: msg.DisplayName,
			Language:    msg.Language,
		})
	}
}

func (h *WSHandler) handleStartSpeech(ctx context.Context, st *connState, wc *wsConn, msg protocol.ClientMessage, log *logrus.Entry) {
	if !st.joined {
		wc.sendError(utils.E(utils.CodeInvalidArgument, "WSHandler.Session", "join a room before recording", nil))
		return
	}

	mode := models.ModeRoom
	if msg.Mode == string(models.ModeSolo) {
		mode = models.ModeSolo
	}

	language := msg.Language
	if language == "" {
		if p, ok := h.registry.Get(st.roomID, st.userID); ok {
			language = p.Language
		}
	}

	_, err := h.recognition.Start(ctx, recognition.Params{
		UserID:         st.userID,
		RoomID:         st.roomID,
		Encoding:       models.Encoding(msg.Encoding),
		SampleRate:     msg.SampleRate,
		Language:       language,
		Mode:           mode,
		TargetLanguage: msg.TargetLanguage,
	}, &speechSink{h: h, wc: wc})
	if err != nil {
		wc.sendError(err)
		return
	}
	log.WithField("room_id", st.roomID).Debug("speech started")
}

func (h *WSHandler) handleSpeechData(st *connState, wc *wsConn, msg protocol.ClientMessage) {
	chunk, err := msg.Audio()
	if err != nil {
		wc.sendError(err)
		return
	}
	metrics.AudioChunks.Inc()
	if err := h.recognition.PushAudio(st.userID, msg.Seq, chunk); err != nil {
		// Audio without a session: stale chunks after a stop, not worth an
		// error frame per chunk.
		return
	}
}

// speechSink routes recognition output: every segment echoes back to the
// speaker, final segments additionally fan out to the room.
type speechSink struct {
	h  *WSHandler
	wc *wsConn
}

func (s *speechSink) OnTranscript(session models.RecordingSession, seg models.TranscriptSegment) {
	_ = s.wc.Send(protocol.ServerMessage{
		Type:     protocol.TypeRecognizedSpeech,
		Text:     seg.Text,
		IsFinal:  seg.IsFinal,
		Seq:      seg.Seq,
		Language: seg.Language,
	})
	if seg.IsFinal {
		s.h.fanout.Dispatch(context.Background(), session, seg)
	}
}

func (s *speechSink) OnSessionError(session models.RecordingSession, err error) {
	msg := protocol.ServerMessage{
		Type:    protocol.TypeSpeechError,
		Code:    utils.CodeOf(err),
		Message: "speech recognition failed",
	}
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		msg.Message = ae.Message
	}
	_ = s.wc.Send(msg)
}
