package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/protocol"
	"github.com/babelroom/babelroom/internal/utils"
)

// Conn is the client side of the session protocol: one ordered bidirectional
// websocket with transparent reconnect. Session state (room membership, an
// active start_speech) is replayed after a reconnect rather than restarted
// from scratch; unsent audio is the recorder's problem, via its chunk buffer.
type Conn struct {
	url            string
	header         http.Header
	connectTimeout time.Duration
	log            *logrus.Entry

	// OnMessage receives every inbound server message.
	OnMessage func(msg protocol.ServerMessage)
	// OnReady fires after (re)connection, once replayed control messages are
	// out; the recorder hooks its buffer flush here.
	OnReady func()

	mu       sync.Mutex
	ws       *websocket.Conn
	ready    bool
	joinMsg  *protocol.ClientMessage
	startMsg *protocol.ClientMessage
}

func NewConn(url string, header http.Header, connectTimeout time.Duration, log *logrus.Logger) *Conn {
	if connectTimeout <= 0 {
		connectTimeout = 15 * time.Second
	}
	return &Conn{
		url:            url,
		header:         header,
		connectTimeout: connectTimeout,
		log:            log.WithField("component", "conn"),
	}
}

// Run connects and keeps the connection alive until ctx is done, redialing
// with backoff on failure.
func (c *Conn) Run(ctx context.Context) {
	backoff := 500 * time.Millisecond
	for ctx.Err() == nil {
		if err := c.connect(ctx); err != nil {
			c.log.WithError(err).Warn("connect failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 8*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 500 * time.Millisecond

		c.readPump(ctx)
		c.dropConn()
	}
}

// dropConn marks the connection dead and releases the socket.
func (c *Conn) dropConn() {
	c.mu.Lock()
	c.ready = false
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()
}

func (c *Conn) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.connectTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	ws, _, err := dialer.DialContext(dialCtx, c.url, c.header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.ready = true
	join := c.joinMsg
	start := c.startMsg
	c.mu.Unlock()

	// Replay session-defining control messages so the server resumes rather
	// than restarts our state.
	if join != nil {
		if err := c.Send(*join); err != nil {
			c.dropConn()
			return err
		}
	}
	if start != nil {
		if err := c.Send(*start); err != nil {
			c.dropConn()
			return err
		}
	}

	if c.OnReady != nil {
		c.OnReady()
	}
	return nil
}

func (c *Conn) readPump(ctx context.Context) {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return
	}

	for ctx.Err() == nil {
		var msg protocol.ServerMessage
		if err := ws.ReadJSON(&msg); err != nil {
			c.log.WithError(err).Debug("read failed")
			return
		}
		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

func (c *Conn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Send writes one client message. The mutex serializes concurrent writers on
// the single websocket.
func (c *Conn) Send(msg protocol.ClientMessage) error {
	const op = "Conn.Send"

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready || c.ws == nil {
		return utils.E(utils.CodeUnavailable, op, "not connected", nil)
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(msg)
}

// Join declares room membership; it is replayed on every reconnect.
func (c *Conn) Join(roomCode, displayName, language string) error {
	msg := protocol.ClientMessage{
		Type:        protocol.TypeJoinRoom,
		RoomCode:    roomCode,
		DisplayName: displayName,
		Language:    language,
	}
	c.mu.Lock()
	c.joinMsg = &msg
	c.mu.Unlock()
	return c.Send(msg)
}

// Transport implementation for the recorder.

func (c *Conn) SendStart(enc models.Encoding, sampleRate int, lang string, mode models.Mode, targetLang string) error {
	msg := protocol.ClientMessage{
		Type:           protocol.TypeStartSpeech,
		Encoding:       string(enc),
		SampleRate:     sampleRate,
		Language:       lang,
		Mode:           string(mode),
		TargetLanguage: targetLang,
	}
	c.mu.Lock()
	c.startMsg = &msg
	c.mu.Unlock()
	return c.Send(msg)
}

func (c *Conn) SendChunk(seq int64, chunk []byte) error {
	return c.Send(protocol.ClientMessage{
		Type:        protocol.TypeSpeechData,
		Seq:         seq,
		AudioBase64: protocol.EncodeAudio(chunk),
	})
}

func (c *Conn) SendStop() error {
	c.mu.Lock()
	c.startMsg = nil
	c.mu.Unlock()
	return c.Send(protocol.ClientMessage{Type: protocol.TypeStopSpeech})
}

// SendStopAsync never blocks the caller and never reports failure; used on
// page-hide style forced stops.
func (c *Conn) SendStopAsync() {
	c.mu.Lock()
	c.startMsg = nil
	c.mu.Unlock()
	go func() {
		_ = c.Send(protocol.ClientMessage{Type: protocol.TypeStopSpeech})
	}()
}

// Close tears the connection down.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	if c.ws != nil {
		err := c.ws.Close()
		c.ws = nil
		return err
	}
	return nil
}
