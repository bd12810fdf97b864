package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// ExecCapture records PCM from the system microphone through an external
// capture process (pw-record by default). It emits LINEAR16 chunks on a fixed
// interval, so SupportsOpus is always false here; browser clients with a
// MediaRecorder equivalent report true and send Opus instead.
type ExecCaptureConfig struct {
	Binary        string
	SampleRate    int
	ChunkInterval time.Duration
}

type ExecCapture struct {
	cfg ExecCaptureConfig

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func NewExecCapture(cfg ExecCaptureConfig) *ExecCapture {
	if cfg.Binary == "" {
		cfg.Binary = "pw-record"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkInterval <= 0 {
		cfg.ChunkInterval = 250 * time.Millisecond
	}
	return &ExecCapture{cfg: cfg}
}

func (c *ExecCapture) SupportsOpus() bool { return false }
func (c *ExecCapture) SampleRate() int    { return c.cfg.SampleRate }

func (c *ExecCapture) Start(ctx context.Context) (<-chan Frame, <-chan error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil {
		return nil, nil, fmt.Errorf("capture already running")
	}

	captureCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(captureCtx, c.cfg.Binary,
		"--format", "s16",
		"--rate", strconv.Itoa(c.cfg.SampleRate),
		"--channels", "1",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start %s: %w", c.cfg.Binary, err)
	}
	c.cmd = cmd
	c.cancel = cancel

	// 16-bit mono: bytes per chunk = rate * 2 * interval.
	chunkBytes := c.cfg.SampleRate * 2 * int(c.cfg.ChunkInterval.Milliseconds()) / 1000

	frames := make(chan Frame, 16)
	errs := make(chan error, 1)
	go func() {
		defer close(frames)
		defer close(errs)
		defer func() {
			_ = cmd.Wait()
		}()

		reader := bufio.NewReaderSize(stdout, chunkBytes*2)
		for {
			chunk := make([]byte, chunkBytes)
			if _, err := io.ReadFull(reader, chunk); err != nil {
				if captureCtx.Err() == nil && err != io.EOF {
					errs <- err
				}
				return
			}
			select {
			case frames <- Frame{Data: chunk, Timestamp: time.Now()}:
			case <-captureCtx.Done():
				return
			}
		}
	}()

	return frames, errs, nil
}

func (c *ExecCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.cmd = nil
	return nil
}
