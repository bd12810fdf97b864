package tts

import (
	"context"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/babelroom/babelroom/internal/utils"
)

// GoogleTTS calls the Cloud Text-to-Speech v1 API and returns MP3 audio.
type GoogleTTS struct {
	c *texttospeech.Client
}

func NewGoogleTTS(ctx context.Context, opts ...option.ClientOption) (*GoogleTTS, error) {
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleTTS{c: c}, nil
}

func (g *GoogleTTS) Name() string { return "google-tts" }

func (g *GoogleTTS) Available(ctx context.Context) bool { return g != nil && g.c != nil }

func (g *GoogleTTS) Close() error { return g.c.Close() }

func (g *GoogleTTS) Synthesize(ctx context.Context, text string, voice VoiceConfig) ([]byte, error) {
	const op = "GoogleTTS.Synthesize"

	if text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}
	lang := voice.Language
	if lang == "" {
		lang = "en-US"
	}

	resp, err := g.c.SynthesizeSpeech(ctx, &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{
			InputSource: &ttspb.SynthesisInput_Text{Text: text},
		},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice.Voice,
		},
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "synthesis failed", err)
	}
	return resp.AudioContent, nil
}
