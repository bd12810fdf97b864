// Command client is a terminal participant: it joins a room, records the
// microphone push-to-talk style, prints recognized and translated text, and
// plays translations back through the playback queue.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/babelroom/babelroom/config"
	"github.com/babelroom/babelroom/internal/client"
	"github.com/babelroom/babelroom/internal/logger"
	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/protocol"
)

func main() {
	_ = godotenv.Load()

	var (
		server = flag.String("server", "http://localhost:8080", "service base URL")
		room   = flag.String("room", "", "room join code")
		name   = flag.String("name", "cli", "display name")
		lang   = flag.String("lang", "en-US", "spoken language")
		solo   = flag.String("solo", "", "solo mode: translate for yourself into this language")
	)
	flag.Parse()

	if *room == "" {
		fmt.Fprintln(os.Stderr, "usage: client -room CODE [-lang en-US] [-solo es]")
		os.Exit(2)
	}

	log := logger.New()
	cfg := config.LoadApp()
	userID := uuid.NewString()

	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws/session?user_id=" + userID
	conn := client.NewConn(wsURL, nil, cfg.ConnectTimeout, log)

	mode := models.ModeRoom
	if *solo != "" {
		mode = models.ModeSolo
	}

	capture := client.NewExecCapture(client.ExecCaptureConfig{
		ChunkInterval: cfg.ChunkInterval,
	})
	recorder := client.NewRecorder(client.RecorderConfig{
		Language:       *lang,
		Mode:           mode,
		TargetLanguage: *solo,
		SilenceTimeout: cfg.SilenceTimeout,
		MaxDuration:    cfg.MaxSessionDuration,
		BufferCap:      cfg.ChunkBufferCap,
	}, conn, capture, log)

	playback := client.NewPlaybackQueue(
		client.NewHTTPSynthesizer(*server, userID),
		&execPlayer{},
		log,
	)
	playback.OnSoftError = func(item models.PlaybackItem, err error) {
		fmt.Printf("!! could not speak: %q (%v)\n", item.Text, err)
	}

	conn.OnReady = recorder.OnTransportReady
	// Every path back to idle resumes playback, the timers included.
	recorder.OnStop = func() { playback.SetRecording(false) }
	conn.OnMessage = func(msg protocol.ServerMessage) {
		switch msg.Type {
		case protocol.TypeJoined:
			fmt.Printf("-- joined room %s (%d participants)\n", msg.RoomID, len(msg.Participants))
		case protocol.TypeParticipantJoined:
			fmt.Printf("-- %s joined (%s)\n", msg.DisplayName, msg.Language)
		case protocol.TypeParticipantLeft:
			fmt.Printf("-- %s left\n", msg.UserID)
		case protocol.TypeRecognizedSpeech:
			marker := "…"
			if msg.IsFinal {
				marker = "✓"
			}
			fmt.Printf("%s %s\n", marker, msg.Text)
		case protocol.TypeTranslatedMessage, protocol.TypeSoloTranslated:
			fmt.Printf("<- [%s] %s\n", msg.TargetLanguage, msg.Text)
			playback.Enqueue(models.PlaybackItem{Text: msg.Text, Language: msg.TargetLanguage})
		case protocol.TypeSpeechError:
			fmt.Printf("!! speech error: %s (%s)\n", msg.Message, msg.Code)
		case protocol.TypeError:
			fmt.Printf("!! error: %s (%s)\n", msg.Message, msg.Code)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conn.Run(ctx)
	go playback.Run(ctx)

	// Give the dial a moment, then join.
	time.Sleep(500 * time.Millisecond)
	if err := conn.Join(*room, *name, *lang); err != nil {
		log.WithError(err).Fatal("join failed")
	}

	fmt.Println("enter = start/stop recording, l = lock, q = quit")
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "q":
			recorder.ForceStop()
			return
		case "l":
			recorder.Lock()
		default:
			if recorder.State() == client.StateIdle {
				playback.SetRecording(true)
				if err := recorder.Start(ctx); err != nil {
					playback.SetRecording(false)
					fmt.Printf("!! cannot record: %v\n", err)
				}
			} else {
				recorder.Stop()
			}
		}
	}
}

// execPlayer shells out to a local audio player for the synthesized MP3.
type execPlayer struct{}

func (p *execPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, "mpv", "--really-quiet", "-")
	cmd.Stdin = bytes.NewReader(audio)
	return cmd.Run()
}
