package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GoogleSpeech streams audio to the Cloud Speech-to-Text v1 API.
type GoogleSpeech struct {
	c *speech.Client
}

func NewGoogleSpeech(ctx context.Context, opts ...option.ClientOption) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c}, nil
}

func (g *GoogleSpeech) Name() string { return "google-speech" }

func (g *GoogleSpeech) Available(ctx context.Context) bool { return g != nil && g.c != nil }

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func encodingOf(e string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch e {
	case "OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrBadEncoding, e)
	}
}

// Open starts one streaming recognition call configured exactly once. A
// restart after a recoverable failure calls Open again with the same cfg.
func (g *GoogleSpeech) Open(ctx context.Context, cfg StreamConfig) (Stream, error) {
	enc, err := encodingOf(string(cfg.Encoding))
	if err != nil {
		return nil, err
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}

	sc, err := g.c.StreamingRecognize(ctx)
	if err != nil {
		return nil, classify(err)
	}

	if err := sc.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   enc,
					SampleRateHertz:            int32(cfg.SampleRateHz),
					LanguageCode:               language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: true,
			},
		},
	}); err != nil {
		return nil, classify(err)
	}

	s := &googleStream{sc: sc, results: make(chan Result, 16)}
	go s.recvLoop()
	return s, nil
}

type googleStream struct {
	sc      speechpb.Speech_StreamingRecognizeClient
	results chan Result

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *googleStream) Send(chunk []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrTransportReset
	}
	s.mu.Unlock()

	err := s.sc.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *googleStream) Results() <-chan Result { return s.results }

func (s *googleStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *googleStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.sc.CloseSend()
}

func (s *googleStream) recvLoop() {
	defer close(s.results)
	for {
		resp, err := s.sc.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = classify(err)
			}
			s.mu.Unlock()
			return
		}
		for _, res := range resp.Results {
			if len(res.Alternatives) == 0 {
				continue
			}
			alt := res.Alternatives[0]
			s.results <- Result{
				Text:       alt.Transcript,
				IsFinal:    res.IsFinal,
				Confidence: float64(alt.Confidence),
			}
		}
	}
}

// classify maps gRPC failures onto the package sentinels so callers never
// branch on provider identity.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrTransportReset, err)
	}
	switch st.Code() {
	case codes.OutOfRange, codes.DeadlineExceeded:
		// Cloud Speech ends long streams with OUT_OF_RANGE.
		return fmt.Errorf("%w: %v", ErrStreamExpired, err)
	case codes.Unavailable, codes.Aborted, codes.Internal:
		return fmt.Errorf("%w: %v", ErrTransportReset, err)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %v", ErrBadEncoding, err)
	case codes.PermissionDenied, codes.ResourceExhausted, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", ErrQuota, err)
	default:
		return err
	}
}
